package binding

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEmitParse(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name     string
		param    EndpointParameter
		input    string
		output   string
		expected string
	}{
		{
			name:   "required int",
			param:  EndpointParameter{Type: typeFor[int](), Strategy: StrategyStrconv},
			input:  "idRaw",
			output: "id",
			expected: `if idRaw == "" {
	wasParamCheckFailure = true
} else {
	if v, err := strconv.ParseInt(idRaw, 10, 0); err != nil {
		wasParamCheckFailure = true
	} else {
		id = int(v)
	}
}
`,
		},
		{
			name:   "optional pointer",
			param:  EndpointParameter{Type: typeFor[*int64](), Strategy: StrategyStrconv, Optional: true},
			input:  "pageRaw",
			output: "page",
			expected: `if pageRaw != "" {
	if v, err := strconv.ParseInt(pageRaw, 10, 64); err != nil {
		wasParamCheckFailure = true
	} else {
		parsed := v
		page = &parsed
	}
}
`,
		},
		{
			name:   "optional float with default",
			param:  EndpointParameter{Type: typeFor[float32](), Strategy: StrategyStrconv, Optional: true},
			input:  "raw",
			output: "ratio",
			expected: `if raw != "" {
	if v, err := strconv.ParseFloat(raw, 32); err != nil {
		wasParamCheckFailure = true
	} else {
		ratio = float32(v)
	}
}
`,
		},
		{
			name:   "array of strings",
			param:  EndpointParameter{Type: typeFor[[]string](), Strategy: StrategyString, IsArray: true},
			input:  `r.URL.Query()["tag"]`,
			output: "tags",
			expected: `for _, item := range r.URL.Query()["tag"] {
	if item == "" {
		continue
	}
	tags = append(tags, item)
}
`,
		},
		{
			name:   "array of bools",
			param:  EndpointParameter{Type: typeFor[[]bool](), Strategy: StrategyStrconv, IsArray: true},
			input:  "values",
			output: "flags",
			expected: `for _, item := range values {
	if item == "" {
		continue
	}
	if v, err := strconv.ParseBool(item); err != nil {
		wasParamCheckFailure = true
	} else {
		flags = append(flags, v)
	}
}
`,
		},
		{
			name:   "text unmarshaler",
			param:  EndpointParameter{Type: typeFor[uuid.UUID](), Strategy: StrategyTextUnmarshaler},
			input:  "raw",
			output: "id",
			expected: `if raw == "" {
	wasParamCheckFailure = true
} else {
	var v uuid.UUID
	if err := v.UnmarshalText([]byte(raw)); err != nil {
		wasParamCheckFailure = true
	} else {
		id = v
	}
}
`,
		},
		{
			name: "parse function",
			param: EndpointParameter{
				Type:     reg.MustResolve("time.Duration"),
				Strategy: StrategyParse,
				Parser:   &FuncRef{Name: "ParseDuration", Results: []string{"time.Duration", "error"}},
				Optional: true,
			},
			input:  "raw",
			output: "ttl",
			expected: `if raw != "" {
	if v, err := time.ParseDuration(raw); err != nil {
		wasParamCheckFailure = true
	} else {
		ttl = v
	}
}
`,
		},
		{
			name: "format-aware parse",
			param: EndpointParameter{
				Type:     &TypeRef{PkgPath: "example.com/app", PkgName: "app", Name: "Day", DefaultFormat: "2006-01-02"},
				Strategy: StrategyFormatParse,
				Parser:   &FuncRef{Name: "Parse", Results: []string{"example.com/app.Day", "error"}},
			},
			input:  "raw",
			output: "day",
			expected: `if raw == "" {
	wasParamCheckFailure = true
} else {
	if v, err := app.Parse("2006-01-02", raw); err != nil {
		wasParamCheckFailure = true
	} else {
		day = v
	}
}
`,
		},
		{
			name: "try parse returning a pointer",
			param: EndpointParameter{
				Type:     &TypeRef{PkgPath: "example.com/app", PkgName: "app", Name: "Color"},
				Strategy: StrategyTryParse,
				Parser:   &FuncRef{Name: "TryParseColor", Results: []string{"*example.com/app.Color", "bool"}},
				Optional: true,
			},
			input:  "raw",
			output: "color",
			expected: `if raw != "" {
	if v, ok := app.TryParseColor(raw); !ok {
		wasParamCheckFailure = true
	} else {
		color = *v
	}
}
`,
		},
		{
			name:   "enum",
			param:  EndpointParameter{Type: levelType, Strategy: StrategyEnum},
			input:  "raw",
			output: "level",
			expected: `if raw == "" {
	wasParamCheckFailure = true
} else {
	switch raw {
	case "Low":
		level = app.Low
	case "High":
		level = app.High
	default:
		wasParamCheckFailure = true
	}
}
`,
		},
		{
			name:   "uri",
			param:  EndpointParameter{Type: typeFor[url.URL](), Strategy: StrategyURI},
			input:  "raw",
			output: "callback",
			expected: `if raw == "" {
	wasParamCheckFailure = true
} else {
	if v, err := url.Parse(raw); err != nil {
		wasParamCheckFailure = true
	} else {
		callback = *v
	}
}
`,
		},
		{
			name:   "named string",
			param:  EndpointParameter{Type: &TypeRef{PkgPath: "example.com/app", PkgName: "app", Name: "Slug", Kind: KindString}, Strategy: StrategyString},
			input:  "raw",
			output: "slug",
			expected: `if raw == "" {
	wasParamCheckFailure = true
} else {
	slug = app.Slug(raw)
}
`,
		},
		{
			name:   "no strategy",
			param:  EndpointParameter{Type: typeFor[point](), Source: SourceJSONBody},
			input:  "raw",
			output: "p",
		},
		{
			name:   "no type",
			param:  EndpointParameter{Strategy: StrategyString},
			input:  "raw",
			output: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EmitParse(tt.param, tt.input, tt.output))
		})
	}
}

func TestEmitParseClassified(t *testing.T) {
	wk := DefaultWellKnownTypes()
	e := Endpoint{Methods: []string{"GET"}}

	ep := Classify(Parameter{Name: "since", Type: typeFor[*time.Time]()}, e, wk)
	assert.Equal(t, `if sinceRaw != "" {
	var v time.Time
	if err := v.UnmarshalText([]byte(sinceRaw)); err != nil {
		wasParamCheckFailure = true
	} else {
		parsed := v
		since = &parsed
	}
}
`, EmitParse(ep, "sinceRaw", "since"))

	ep = Classify(Parameter{Name: "ref", Type: typeFor[uuid.UUID]()}, e, wk)
	assert.Contains(t, EmitParse(ep, "raw", "ref"), "var v uuid.UUID")
}
