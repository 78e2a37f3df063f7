package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitalvas/routekit/diag"
	"github.com/vitalvas/routekit/routecompare"
	"github.com/vitalvas/routekit/routepattern"
)

// parseTemplate parses text and checks its policies.
func parseTemplate(text string) (*routepattern.Tree, []diag.Diagnostic) {
	tree, diags := routepattern.Parse(text)
	diags = append(diags, routepattern.CheckPolicies(tree)...)
	diag.Sort(diags)

	return tree, diags
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <template>",
		Short: "Print the syntax tree and diagnostics of a route template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			tree, diags := parseTemplate(args[0])
			fmt.Fprint(out, tree.Dump())

			for _, d := range diags {
				fmt.Fprintln(out, d)
			}

			if diag.HasErrors(diags) {
				return errFindings
			}

			fmt.Fprintf(out, "canonical: %s\n", routecompare.Canonical(tree))

			return nil
		},
	}
}

func matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <path> <template>...",
		Short: "Report which templates match a request path",
		Long: `Match tries every template against the path and prints the captured
route values of those that match. The exit status is 1 when none does.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := args[0]
			matched := 0

			for _, text := range args[1:] {
				m, err := compileTemplate(text)
				if err != nil {
					fmt.Fprintf(out, "%s\tinvalid: %s\n", text, err)
					continue
				}

				values, ok := m.Match(path)
				if !ok {
					fmt.Fprintf(out, "%s\tno match\n", text)
					continue
				}

				matched++
				fmt.Fprintf(out, "%s\tmatch\t%s\n", text, formatValues(values))
			}

			if matched == 0 {
				return errFindings
			}

			return nil
		},
	}
}

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <template> [name=value...]",
		Short: "Build a path from a template and route values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := compileTemplate(args[0])
			if err != nil {
				return err
			}

			values := make(map[string]string, len(args)-1)
			for _, arg := range args[1:] {
				name, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("route value %q: expected name=value", arg)
				}
				values[name] = value
			}

			path, err := m.Build(values)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
}

// compileTemplate parses and compiles text, failing on the first error
// diagnostic.
func compileTemplate(text string) (*routepattern.Matcher, error) {
	tree, diags := parseTemplate(text)
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			return nil, fmt.Errorf("%s %s", d.Span, d.Message)
		}
	}

	return routepattern.Compile(tree)
}

func formatValues(values map[string]string) string {
	keys := slices.Sorted(maps.Keys(values))

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + values[k]
	}

	return strings.Join(parts, " ")
}
