// Package lint runs the route checks over a set of endpoint declarations
// and collects the findings into a report.
//
// For every endpoint the analyzer parses the route template, checks its
// parameter policies and classifies each handler parameter. It then groups
// the routes by block and reports those that cannot be told apart.
//
//	a := lint.New(lint.WithLogger(logger), lint.WithConfig(cfg))
//	report, err := a.Run(ctx, m.Endpoints, reg)
//	if err != nil {
//		return err
//	}
//	report.Write(os.Stdout, lint.FormatText)
package lint
