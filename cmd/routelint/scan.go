package main

import (
	"github.com/spf13/cobra"

	"github.com/vitalvas/routekit/manifest"
	"github.com/vitalvas/routekit/scan"
)

func scanCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scan <dir>...",
		Short: "Print the endpoints found in Go source as a manifest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := &manifest.Manifest{}
			for _, dir := range args {
				scanned, err := scan.ScanDir(dir)
				if err != nil {
					return err
				}
				m.Merge(scanned)
			}

			return m.Encode(cmd.OutOrStdout(), manifest.Format(format))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml|json)")

	return cmd
}
