package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitalvas/routekit/lint"
	"github.com/vitalvas/routekit/manifest"
	"github.com/vitalvas/routekit/scan"
)

func checkCmd(root *rootOptions) *cobra.Command {
	var (
		scanDirs   []string
		configFile string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "check [manifest...]",
		Short: "Check the endpoints of manifests and scanned source",
		Long: `Check loads every manifest given as an argument and every route
registration found under the --scan directories, then reports template
errors, ambiguous routes and parameter binding problems.

The exit status is 1 when any error is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(scanDirs) == 0 {
				return errors.New("nothing to check: pass manifests or --scan")
			}

			cfg := lint.DefaultConfig()
			if configFile != "" {
				loaded, err := lint.LoadConfig(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("format") {
				f, err := lint.ParseFormat(format)
				if err != nil {
					return err
				}
				cfg.Format = f
			}

			m := &manifest.Manifest{}
			for _, name := range args {
				loaded, err := manifest.Load(name)
				if err != nil {
					return err
				}
				if err := loaded.Validate(); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				m.Merge(loaded)
			}
			for _, dir := range scanDirs {
				scanned, err := scan.ScanDir(dir)
				if err != nil {
					return err
				}
				m.Merge(scanned)
			}

			reg, err := m.Registry()
			if err != nil {
				return err
			}

			analyzer := lint.New(
				lint.WithLogger(root.logger(cmd.ErrOrStderr())),
				lint.WithConfig(cfg),
			)

			report, err := analyzer.Run(cmd.Context(), m.Endpoints, reg)
			if err != nil {
				return err
			}

			if err := report.Write(cmd.OutOrStdout(), cfg.Format); err != nil {
				return err
			}

			if report.HasErrors() {
				return errFindings
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&scanDirs, "scan", nil, "Scan Go source under `dir` for route registrations")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Read lint config from `file`")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text|json|yaml)")

	return cmd
}
