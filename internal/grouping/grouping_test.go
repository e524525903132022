package grouping

import (
	"testing"

	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(text string, x, y float64) tokens.Token {
	return tokens.Token{Text: text, Confidence: 1, X: x, Y: y}
}

func TestIsNumberFragment(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"9", true},
		{"123", true},
		{".", true},
		{"•", true},
		{"9.8", true},
		{"9•8", true},
		{"..", false},
		{"•.", false},
		{"", false},
		{"9a", false},
		{"-3", false},
		{"Distance:", false},
		{"1,5", false},
		{" 5", false},
		{"٣", false},
		{"１２", false},
		{"7٣", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNumberFragment(tt.text))
		})
	}
}

func TestReadingOrder(t *testing.T) {
	in := []tokens.Token{tok("c", 50, 20), tok("a", 10, 10), tok("b", 40, 10), tok("d", 0, 20)}
	out := ReadingOrder(in)

	got := make([]string, len(out))
	for i, t := range out {
		got[i] = t.Text
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, got)
	assert.Equal(t, "c", in[0].Text, "input must not be reordered")
}

func TestGroup_SymbolSubstitution(t *testing.T) {
	groups := Group([]tokens.Token{tok("9", 100, 400), tok("•", 120, 402), tok("8", 140, 401)}, DefaultConfig())

	require.Len(t, groups, 1)
	assert.Equal(t, "9.8", groups[0].Text)
	assert.InDelta(t, 120.0, groups[0].X, 1e-9)
	assert.InDelta(t, 401.0, groups[0].Y, 1e-9)
	assert.Len(t, groups[0].Members, 3)
}

func TestGroup_VerticalGapSplits(t *testing.T) {
	groups := Group([]tokens.Token{tok("1", 100, 100), tok("2", 100, 135)}, DefaultConfig())

	require.Len(t, groups, 2)
	assert.Equal(t, "1", groups[0].Text)
	assert.Equal(t, "2", groups[1].Text)
}

func TestGroup_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		groups int
	}{
		{"same line close", 20, 0, 1},
		{"dy just under", 0, 29.9, 1},
		{"dy at threshold", 0, 30, 2},
		{"dx just under", 99.9, 0, 1},
		{"dx at threshold", 100, 0, 2},
		{"right to left", -50, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []tokens.Token{tok("1", 200, 200), tok("2", 200+tt.dx, 200+tt.dy)}
			assert.Len(t, Group(in, DefaultConfig()), tt.groups)
		})
	}
}

func TestGroup_NonNumericTokensAreInvisible(t *testing.T) {
	// "km" sits between the two digits in reading order but must not break the group.
	in := []tokens.Token{tok("4", 100, 300), tok("km", 130, 300), tok("2", 160, 300)}
	groups := Group(in, DefaultConfig())

	require.Len(t, groups, 1)
	assert.Equal(t, "42", groups[0].Text)
}

func TestGroup_NonNumericTokenDoesNotRelayAdjacency(t *testing.T) {
	// The label lies between the digits spatially, but the second digit is
	// compared with the first one directly and is too far away.
	in := []tokens.Token{tok("4", 100, 300), tok("Time:", 180, 300), tok("2", 260, 300)}
	groups := Group(in, DefaultConfig())

	require.Len(t, groups, 2)
	assert.Equal(t, "4", groups[0].Text)
	assert.Equal(t, "2", groups[1].Text)
}

func TestGroup_ChainsAcrossFragments(t *testing.T) {
	// Each step is under 100px even though first to last is 240px.
	in := []tokens.Token{tok("1", 0, 50), tok("2", 80, 50), tok("3", 160, 50), tok("4", 240, 50)}
	groups := Group(in, DefaultConfig())

	require.Len(t, groups, 1)
	assert.Equal(t, "1234", groups[0].Text)
	assert.InDelta(t, 120.0, groups[0].X, 1e-9)
}

func TestGroup_FlushOrder(t *testing.T) {
	in := []tokens.Token{
		tok("7", 500, 600),
		tok("3", 100, 100),
		tok("5", 300, 300),
		tok("2", 120, 105),
	}
	groups := Group(in, DefaultConfig())

	require.Len(t, groups, 3)
	assert.Equal(t, "32", groups[0].Text)
	assert.Equal(t, "5", groups[1].Text)
	assert.Equal(t, "7", groups[2].Text)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil, DefaultConfig()))
	assert.Empty(t, Group([]tokens.Token{tok("Calories", 1, 1)}, DefaultConfig()))
}

func TestGroup_CustomConfig(t *testing.T) {
	in := []tokens.Token{tok("1", 100, 100), tok("2", 100, 135)}
	groups := Group(in, Config{MaxLineGap: 40, MaxGlyphGap: 10})

	require.Len(t, groups, 1)
	assert.Equal(t, "12", groups[0].Text)
}

func TestGroup_MembersAreCopied(t *testing.T) {
	frags := []tokens.Token{tok("1", 0, 0), tok("2", 10, 0)}
	groups := Fold(frags, DefaultConfig())
	frags[0].Text = "9"

	assert.Equal(t, "1", groups[0].Members[0].Text)
}
