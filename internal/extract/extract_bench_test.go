package extract

import (
	"fmt"
	"testing"

	"github.com/MeKo-Tech/readout/internal/matcher"
	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/tokens"
)

// dashboardBundle lays out cols x rows of value/label pairs, each value
// split into two digit tokens.
func dashboardBundle(cols, rows int) *tokens.Bundle {
	bb := testutil.NewBundle("dashboard")
	for r := range rows {
		y := float64(r * 120)
		for c := range cols {
			x := float64(c * 400)
			bb.Add(fmt.Sprint(r%10), x, y)
			bb.Add(fmt.Sprint(c%10), x+20, y)
			bb.Add(fmt.Sprintf("F%d_%d:", r, c), x, y+50)
		}
	}
	return bb.Build()
}

func BenchmarkExtract_Readout(b *testing.B) {
	ex := New(DefaultConfig())
	bundle := testutil.ReadoutBundle()

	b.ResetTimer()
	for range b.N {
		if _, err := ex.Extract(bundle); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtract_DashboardGreedy(b *testing.B) {
	ex := New(DefaultConfig())
	bundle := dashboardBundle(8, 25)

	b.ResetTimer()
	for range b.N {
		if _, err := ex.Extract(bundle); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtract_DashboardExclusive(b *testing.B) {
	ex, err := NewBuilder().WithAssignment(matcher.Exclusive).Build()
	if err != nil {
		b.Fatal(err)
	}
	bundle := dashboardBundle(8, 25)

	b.ResetTimer()
	for range b.N {
		if _, err := ex.Extract(bundle); err != nil {
			b.Fatal(err)
		}
	}
}
