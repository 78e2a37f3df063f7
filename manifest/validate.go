package manifest

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/vitalvas/routekit/binding"
)

// Validate checks the manifest's structure and reports every problem found.
// Route templates themselves are not checked here; their problems are
// diagnostics produced by the analyzer.
func (m *Manifest) Validate() error {
	var result *multierror.Error

	types := make(map[string]bool, len(m.Types))
	for i, t := range m.Types {
		where := fmt.Sprintf("types[%d]", i)
		if t.Name == "" {
			result = multierror.Append(result, fmt.Errorf("%s: name is required", where))
		}
		if t.Package == "" {
			result = multierror.Append(result, fmt.Errorf("%s: package is required", where))
		}
		if _, err := binding.ParseKind(t.Kind); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", where, err))
		}
		if types[t.ID()] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate type %s", where, t.ID()))
		}
		types[t.ID()] = true
	}

	// Parameter types can only be checked against a registry that builds.
	reg, regErr := m.Registry()

	ids := make(map[string]bool, len(m.Endpoints))
	for i, e := range m.Endpoints {
		where := fmt.Sprintf("endpoints[%d]", i)
		if e.ID != "" {
			where = fmt.Sprintf("endpoints[%d] (%s)", i, e.ID)
			if ids[e.ID] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate id", where))
			}
			ids[e.ID] = true
		}

		if strings.TrimSpace(e.Route) == "" {
			result = multierror.Append(result, fmt.Errorf("%s: route is required", where))
		}
		for _, method := range e.Methods {
			if !validMethod(method) {
				result = multierror.Append(result, fmt.Errorf("%s: invalid method %q", where, method))
			}
		}

		names := make(map[string]bool, len(e.Parameters))
		for j, p := range e.Parameters {
			pwhere := fmt.Sprintf("%s.parameters[%d]", where, j)
			if p.Name == "" {
				result = multierror.Append(result, fmt.Errorf("%s: name is required", pwhere))
			} else if names[p.Name] {
				result = multierror.Append(result, fmt.Errorf("%s: duplicate parameter %q", pwhere, p.Name))
			}
			names[p.Name] = true

			if p.Type == "" {
				result = multierror.Append(result, fmt.Errorf("%s: type is required", pwhere))
			} else if regErr == nil {
				if _, err := reg.Resolve(p.Type); err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", pwhere, err))
				}
			}

			if p.Lookup != "" && p.From == binding.SourceUnknown {
				result = multierror.Append(result, fmt.Errorf("%s: lookup requires from", pwhere))
			}
		}
	}

	return result.ErrorOrNil()
}

// validMethod reports whether s is an HTTP method token.
func validMethod(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}

	return true
}
