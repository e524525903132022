package matcher

import (
	"math"

	"github.com/MeKo-Tech/readout/internal/tokens"
)

// matchExclusive assigns each group to at most one label. Pairs outside the
// candidate predicate cost more than every eligible pair combined, so the
// assignment first maximizes the number of matched labels and then
// minimizes the summed vertical gap.
func (m *Matcher) matchExclusive(labels []tokens.Token) Outcome {
	n := max(len(labels), len(m.groups))
	if n == 0 {
		return Outcome{}
	}

	var total float64
	for _, label := range labels {
		for _, i := range m.Candidates(label) {
			total += label.Y - m.groups[i].Y
		}
	}
	forbidden := total + 1

	cost := make([][]float64, n)
	for r := range cost {
		cost[r] = make([]float64, n)
		for c := range cost[r] {
			cost[r][c] = forbidden
		}
	}
	for r, label := range labels {
		for _, c := range m.Candidates(label) {
			cost[r][c] = label.Y - m.groups[c].Y
		}
	}

	assign := hungarian(cost)

	var out Outcome
	for r, label := range labels {
		c := assign[r]
		if c < len(m.groups) && m.eligible(label, m.groups[c]) {
			out.Matches = append(out.Matches, m.pair(label, c))
			continue
		}
		out.Unmatched = append(out.Unmatched, label)
	}
	return out
}

// hungarian solves the square assignment problem and returns the column
// assigned to each row.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		used := make([]bool, n+1)

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assign := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			assign[p[j]-1] = j - 1
		}
	}
	return assign
}
