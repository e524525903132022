// Package report renders extraction results as text, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/readout/internal/coerce"
	"github.com/MeKo-Tech/readout/internal/extract"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an output format name not in Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the accepted output format names.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// ParseFormat validates a format name. Empty means text; "yml" means yaml.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w %q (must be one of: %s)", ErrUnknownFormat, s, strings.Join(Formats, ", "))
	}
}

// Summary is the compact view of a result: the record plus what was lost.
type Summary struct {
	Source     string                `json:"source,omitempty" yaml:"source,omitempty"`
	Record     *coerce.Record        `json:"record" yaml:"record"`
	Unmatched  []string              `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Degraded   []extract.Degradation `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	DurationMs float64               `json:"duration_ms" yaml:"duration_ms"`
}

// Summarize builds the compact view of res.
func Summarize(res *extract.Result) Summary {
	s := Summary{
		Source:     res.Source,
		Record:     res.Record,
		Degraded:   res.Degraded,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
	}
	for _, l := range res.Unmatched {
		s.Unmatched = append(s.Unmatched, l.Text)
	}
	return s
}

// Entry is one file's outcome in a multi-result report.
type Entry struct {
	File   string
	Result *extract.Result
	Err    error
}

type entryView struct {
	File   string `json:"file" yaml:"file"`
	Result any    `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Format renders a single result. With diagnostics the full result, including
// tokens, groups and matches, is emitted instead of the summary.
func Format(res *extract.Result, format string, diagnostics bool) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	format, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatJSON:
		return marshalJSON(view(res, diagnostics))
	case FormatYAML:
		return marshalYAML(view(res, diagnostics))
	default:
		var sb strings.Builder
		writeText(&sb, res, diagnostics)
		return sb.String(), nil
	}
}

// FormatMany renders several outcomes, failed ones included.
func FormatMany(entries []Entry, format string, diagnostics bool) (string, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if format == FormatText {
		var sb strings.Builder
		for i, e := range entries {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "# %s\n", e.File)
			if e.Err != nil {
				fmt.Fprintf(&sb, "error: %v\n", e.Err)
				continue
			}
			if e.Result != nil {
				writeText(&sb, e.Result, diagnostics)
			}
		}
		return sb.String(), nil
	}

	doc := struct {
		Files []entryView `json:"files" yaml:"files"`
	}{Files: make([]entryView, len(entries))}
	for i, e := range entries {
		v := entryView{File: e.File}
		if e.Err != nil {
			v.Error = e.Err.Error()
		} else if e.Result != nil {
			v.Result = view(e.Result, diagnostics)
		}
		doc.Files[i] = v
	}
	if format == FormatYAML {
		return marshalYAML(doc)
	}
	return marshalJSON(doc)
}

func view(res *extract.Result, diagnostics bool) any {
	if diagnostics {
		return res
	}
	return Summarize(res)
}

func marshalJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func marshalYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
