package lint

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/vitalvas/routekit/binding"
	"github.com/vitalvas/routekit/diag"
	"github.com/vitalvas/routekit/manifest"
	"github.com/vitalvas/routekit/routecompare"
	"github.com/vitalvas/routekit/routepattern"
)

// Analyzer runs every route check over a set of endpoint declarations.
// An Analyzer is safe for concurrent use; runs share its template cache.
type Analyzer struct {
	logger *slog.Logger
	cache  *routepattern.Cache
	config Config
	wk     *binding.WellKnownTypes
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCache shares a parse cache between analyzers.
func WithCache(cache *routepattern.Cache) Option {
	return func(a *Analyzer) {
		if cache != nil {
			a.cache = cache
		}
	}
}

// WithConfig sets the diagnostic config.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.config = cfg
	}
}

// WithWellKnownTypes replaces the net/http well-known type table.
func WithWellKnownTypes(wk *binding.WellKnownTypes) Option {
	return func(a *Analyzer) {
		if wk != nil {
			a.wk = wk
		}
	}
}

// New returns an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger: slog.New(slog.DiscardHandler),
		cache:  routepattern.NewCache(),
		config: DefaultConfig(),
		wk:     binding.DefaultWellKnownTypes(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Run analyses the endpoints. Parameter types resolve against reg, or the
// predeclared types when reg is nil. Run stops between endpoints when ctx
// is done and returns the context's error.
func (a *Analyzer) Run(ctx context.Context, endpoints []manifest.Endpoint, reg *binding.Registry) (*Report, error) {
	if reg == nil {
		reg = binding.NewRegistry()
	}

	report := &Report{RunID: uuid.New()}
	logger := a.logger.With("run_id", report.RunID)
	logger.Debug("analysis started", "endpoints", len(endpoints))

	var decls []routecompare.Declaration

	for i, e := range endpoints {
		if err := ctx.Err(); err != nil {
			logger.Debug("analysis cancelled", "done", i, "error", err)
			return nil, err
		}

		result := a.endpoint(i, e, reg)
		report.Endpoints = append(report.Endpoints, result.EndpointResult)
		report.Diagnostics = append(report.Diagnostics, result.findings...)

		if result.tree != nil {
			decls = append(decls, routecompare.Declaration{
				ID:       result.ID,
				Template: e.Route,
				Tree:     result.tree,
				Block:    e.Block,
				Methods:  e.Methods,
				Span:     e.Span,
				Source:   e.File,
			})
		}

		logger.Debug("endpoint analysed",
			"endpoint", result.ID,
			"route", e.Route,
			"diagnostics", len(result.findings),
		)
	}

	for _, c := range routecompare.DetectAmbiguous(decls) {
		logger.Debug("ambiguous routes", "route", c.Route, "members", len(c.Members))

		for j, d := range routecompare.Diagnostics([]routecompare.Collision{c}) {
			m := c.Members[j]
			report.Diagnostics = append(report.Diagnostics, Finding{Diagnostic: d, File: m.Source, Endpoint: m.ID})
		}
	}

	report.Diagnostics = a.config.apply(report.Diagnostics)
	sortFindings(report.Diagnostics)

	logger.Info("analysis finished",
		"endpoints", len(report.Endpoints),
		"diagnostics", len(report.Diagnostics),
		"errors", report.ErrorCount(),
	)

	return report, nil
}

type endpointResult struct {
	EndpointResult
	tree     *routepattern.Tree
	findings []Finding
}

func (r *endpointResult) add(list ...diag.Diagnostic) {
	for _, d := range list {
		r.findings = append(r.findings, Finding{Diagnostic: d, File: r.File, Endpoint: r.ID})
	}
}

func (a *Analyzer) endpoint(i int, e manifest.Endpoint, reg *binding.Registry) *endpointResult {
	r := &endpointResult{
		EndpointResult: EndpointResult{
			ID:      e.ID,
			Route:   e.Route,
			Methods: e.Methods,
			File:    e.File,
			Handler: e.Handler,
		},
	}
	if r.ID == "" {
		r.ID = fmt.Sprintf("endpoints[%d]", i)
	}

	tree, diags := a.cache.Parse(e.Route)
	diags = append(slices.Clone(diags), routepattern.CheckPolicies(tree)...)

	// Template diagnostics are relative to the template; move them to the
	// template's position in its file.
	for _, d := range diags {
		d.Span = e.SourceSpan(d.Span)
		r.add(d)
	}

	if diag.HasErrors(diags) {
		tree = nil
	} else {
		r.Canonical = routecompare.Canonical(tree)
		r.tree = tree
	}

	endpoint := binding.Endpoint{Route: tree, Methods: e.Methods}
	for _, p := range e.Parameters {
		bp, err := p.Binding(reg)
		if err != nil {
			r.add(diag.New(diag.KindUnknownParameterType, p.Span, p.Name, p.Type))
			continue
		}

		ep := binding.Classify(bp, endpoint, a.wk)
		r.add(ep.Diagnostics...)
		r.Parameters = append(r.Parameters, ep)
	}

	return r
}

func sortFindings(list []Finding) {
	slices.SortStableFunc(list, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Span.Start, b.Span.Start),
			cmp.Compare(a.Span.End, b.Span.End),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
}
