package lint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/vitalvas/routekit/diag"
)

// Format is a report output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for report formats other than text, json
// and yaml.
var ErrUnknownFormat = errors.New("lint: unknown format")

// ParseFormat validates a format name. The empty name means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}

	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// Config adjusts which diagnostics a run reports and how.
type Config struct {
	// Disable drops diagnostics of the listed kinds.
	Disable []diag.Kind `yaml:"disable,omitempty"`
	// Severity overrides the default severity per kind.
	Severity map[diag.Kind]diag.Severity `yaml:"severity,omitempty"`
	Format   Format                      `yaml:"format,omitempty"`
}

// DefaultConfig reports every diagnostic at its default severity as text.
func DefaultConfig() Config {
	return Config{Format: FormatText}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(name string) (Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return Config{}, fmt.Errorf("lint: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes a YAML config over the defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("lint: decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects unknown kinds and formats.
func (c Config) Validate() error {
	var result *multierror.Error

	for _, k := range c.Disable {
		if !k.Known() {
			result = multierror.Append(result, fmt.Errorf("disable: unknown kind %q", k))
		}
	}
	for k := range c.Severity {
		if !k.Known() {
			result = multierror.Append(result, fmt.Errorf("severity: unknown kind %q", k))
		}
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// apply drops disabled kinds and overrides severities.
func (c Config) apply(findings []Finding) []Finding {
	out := findings[:0]
	for _, f := range findings {
		if slices.Contains(c.Disable, f.Kind) {
			continue
		}
		if s, ok := c.Severity[f.Kind]; ok {
			f.Severity = s
		}
		out = append(out, f)
	}

	return out
}
