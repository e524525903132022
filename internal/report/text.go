package report

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/readout/internal/extract"
)

// writeText lists the record as "key: value (type)" lines in key order,
// followed by any labels that found no value.
func writeText(sb *strings.Builder, res *extract.Result, diagnostics bool) {
	if diagnostics {
		writeDiagnostics(sb, res)
	}
	for _, k := range res.Record.Keys() {
		v, _ := res.Record.Get(k)
		fmt.Fprintf(sb, "%s: %s (%s)\n", k, v, v.Kind)
	}
	for _, l := range res.Unmatched {
		fmt.Fprintf(sb, "unmatched: %s\n", l.Text)
	}
}

func writeDiagnostics(sb *strings.Builder, res *extract.Result) {
	sb.WriteString("tokens:\n")
	for _, t := range res.Tokens {
		fmt.Fprintf(sb, "  %q at (%g, %g) conf %.3f\n", t.Text, t.X, t.Y, t.Confidence)
	}
	sb.WriteString("groups:\n")
	for _, g := range res.Groups {
		fmt.Fprintf(sb, "  %q at (%g, %g)\n", g.Text, g.X, g.Y)
	}
	fmt.Fprintf(sb, "labels: %d\n", len(res.Labels))
	for _, m := range res.Matches {
		fmt.Fprintf(sb, "  %q <- %q gap %g\n", m.Label.Text, m.Group.Text, m.Gap)
	}
	sb.WriteString("record:\n")
}
