package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/routekit/binding"
	"github.com/vitalvas/routekit/diag"
)

// Report is the result of one analysis run.
type Report struct {
	RunID       uuid.UUID        `json:"run_id" yaml:"run_id"`
	Endpoints   []EndpointResult `json:"endpoints" yaml:"endpoints"`
	Diagnostics []Finding        `json:"diagnostics" yaml:"diagnostics"`
}

// EndpointResult describes one analysed endpoint.
type EndpointResult struct {
	ID      string   `json:"id" yaml:"id"`
	Route   string   `json:"route" yaml:"route"`
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	File    string   `json:"file,omitempty" yaml:"file,omitempty"`
	Handler string   `json:"handler,omitempty" yaml:"handler,omitempty"`
	// Canonical is the route's structural form; empty when the template
	// has errors.
	Canonical  string                      `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Parameters []binding.EndpointParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Finding is a diagnostic attributed to an endpoint and its file. Spans
// are byte offsets into File.
type Finding struct {
	diag.Diagnostic `yaml:",inline"`
	File            string `json:"file,omitempty" yaml:"file,omitempty"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

func (f Finding) String() string {
	file := f.File
	if file == "" {
		file = f.Endpoint
	}

	return file + f.Diagnostic.String()
}

// ErrorCount returns the number of error diagnostics.
func (r *Report) ErrorCount() int {
	n := 0
	for _, f := range r.Diagnostics {
		if f.Severity == diag.SeverityError {
			n++
		}
	}

	return n
}

// HasErrors reports whether any diagnostic is an error.
func (r *Report) HasErrors() bool {
	return r.ErrorCount() > 0
}

// Write renders the report in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatText, "":
		return r.WriteText(w)
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatYAML:
		return r.WriteYAML(w)
	}

	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// WriteText writes one line per diagnostic followed by a summary.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder

	counts := make(map[diag.Severity]int)
	for _, f := range r.Diagnostics {
		sb.WriteString(f.String())
		sb.WriteByte('\n')
		counts[f.Severity]++
	}

	fmt.Fprintf(&sb, "%d endpoints, %d errors, %d warnings\n",
		len(r.Endpoints), counts[diag.SeverityError], counts[diag.SeverityWarning])

	_, err := io.WriteString(w, sb.String())

	return err
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}

	return enc.Close()
}
