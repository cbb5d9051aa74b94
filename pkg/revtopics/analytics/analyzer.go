package analytics

import "sort"

// Analyzer aggregates document-level token stats.
type Analyzer struct {
	totalDocs  int64
	tokenDF    map[string]int64
	tokenCount map[string]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenDF:    make(map[string]int64),
		tokenCount: make(map[string]int64),
	}
}

// Process consumes one document's tokens.
func (a *Analyzer) Process(tokens []string) {
	a.totalDocs++

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		a.tokenCount[tok]++
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs  int64
	TokenDF    map[string]int64
	TokenCount map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyDF := make(map[string]int64, len(a.tokenDF))
	for tok, df := range a.tokenDF {
		copyDF[tok] = df
	}
	copyCount := make(map[string]int64, len(a.tokenCount))
	for tok, c := range a.tokenCount {
		copyCount[tok] = c
	}
	return Stats{
		TotalDocs:  a.totalDocs,
		TokenDF:    copyDF,
		TokenCount: copyCount,
	}
}

// TokenStat is one token's frequency profile.
type TokenStat struct {
	Token     string
	DF        int64
	Count     int64
	DFPercent float64
}

// Ranked returns every token ordered by total count, then document
// frequency, then lexicographically. The order is fully deterministic.
func (s Stats) Ranked() []TokenStat {
	out := make([]TokenStat, 0, len(s.TokenDF))
	for tok, df := range s.TokenDF {
		pct := 0.0
		if s.TotalDocs > 0 {
			pct = float64(df) / float64(s.TotalDocs) * 100
		}
		out = append(out, TokenStat{
			Token:     tok,
			DF:        df,
			Count:     s.TokenCount[tok],
			DFPercent: pct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].DF != out[j].DF {
			return out[i].DF > out[j].DF
		}
		return out[i].Token < out[j].Token
	})
	return out
}
