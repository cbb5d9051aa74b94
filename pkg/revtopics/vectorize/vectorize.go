// Package vectorize builds the vocabulary and the sparse document-term count
// matrix the topic engine consumes.
package vectorize

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/james-bowman/sparse"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/revtopics/internal/logger"
	"github.com/cognicore/revtopics/pkg/revtopics/analytics"
	"github.com/cognicore/revtopics/pkg/revtopics/ingest"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
)

// SmallCorpusDocs is the corpus size below which MinDF is forced to 1.
const SmallCorpusDocs = 200

// Options controls vocabulary filtering.
type Options struct {
	MinDF       int     // minimum document frequency (absolute)
	MaxDF       float64 // maximum document frequency as a fraction of the corpus
	MaxFeatures int     // vocabulary cap
	Workers     int     // tokenization goroutines; <= 1 means sequential
	Logger      *log.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinDF:       5,
		MaxDF:       0.90,
		MaxFeatures: 50000,
		Workers:     1,
	}
}

// Term is a vocabulary entry.
type Term struct {
	Text    string
	DocFreq int64
	Count   int64
	Index   int
}

// Pruned is a term the MaxDF ceiling removed from the vocabulary.
type Pruned struct {
	Token     string
	DF        int64
	DFPercent float64
}

// Vocabulary maps column index to term.
type Vocabulary []Term

// Terms returns the term strings in column order.
func (v Vocabulary) Terms() []string {
	out := make([]string, len(v))
	for i, t := range v {
		out[i] = t.Text
	}
	return out
}

// Matrix is a [docs x vocab] count matrix in CSR layout.
type Matrix struct {
	docs, terms int
	indptr      []int
	ind         []int
	data        []float64

	Vocab Vocabulary

	// EffectiveMinDF is the floor actually applied after the small-corpus rule.
	EffectiveMinDF int
	// CeilingLifted reports that MaxDF was ignored to keep a small corpus non-empty.
	CeilingLifted bool
	// Pruned lists the terms above MaxDF left out of Vocab, most frequent
	// first. It is empty when the ceiling was lifted.
	Pruned []Pruned
}

// Dims returns the number of documents and vocabulary terms.
func (m *Matrix) Dims() (docs, terms int) { return m.docs, m.terms }

// Row returns the column indexes (ascending) and counts of document i.
func (m *Matrix) Row(i int) ([]int, []float64) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.ind[lo:hi], m.data[lo:hi]
}

// NonEmptyRows lists documents with at least one vocabulary term.
func (m *Matrix) NonEmptyRows() []int {
	rows := make([]int, 0, m.docs)
	for i := 0; i < m.docs; i++ {
		if m.indptr[i+1] > m.indptr[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

// CSR returns the full matrix as a sparse.CSR.
func (m *Matrix) CSR() *sparse.CSR {
	return sparse.NewCSR(m.docs, m.terms, cloneInts(m.indptr), cloneInts(m.ind), cloneFloats(m.data))
}

// Subset returns the given rows, in order, as a sparse.CSR.
func (m *Matrix) Subset(rows []int) *sparse.CSR {
	indptr := make([]int, 1, len(rows)+1)
	var ind []int
	var data []float64
	for _, r := range rows {
		cols, vals := m.Row(r)
		ind = append(ind, cols...)
		data = append(data, vals...)
		indptr = append(indptr, len(ind))
	}
	return sparse.NewCSR(len(rows), m.terms, indptr, ind, data)
}

// Vectorizer turns cleaned texts into a Matrix.
type Vectorizer struct {
	tok  *ingest.Tokenizer
	opts Options
	log  *log.Logger
}

// New creates a vectorizer using tok for splitting.
func New(tok *ingest.Tokenizer, opts Options) *Vectorizer {
	return &Vectorizer{tok: tok, opts: opts, log: logger.OrDefault(opts.Logger)}
}

// EffectiveMinDF applies the small-corpus rule.
func EffectiveMinDF(minDF, docs int) int {
	if docs < SmallCorpusDocs {
		return 1
	}
	return minDF
}

// FitTransform learns the vocabulary from texts and returns their count matrix.
func (v *Vectorizer) FitTransform(ctx context.Context, texts []string) (*Matrix, error) {
	if v.opts.MaxDF <= 0 || v.opts.MaxDF > 1 {
		return nil, fmt.Errorf("%w: max_df %.2f outside (0, 1]", internalerr.ErrConfiguration, v.opts.MaxDF)
	}
	if v.opts.MaxFeatures < 1 {
		return nil, fmt.Errorf("%w: max_features %d < 1", internalerr.ErrConfiguration, v.opts.MaxFeatures)
	}

	docTokens, err := v.tokenizeAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	analyzer := analytics.NewAnalyzer()
	for _, toks := range docTokens {
		analyzer.Process(toks)
	}
	stats := analyzer.Snapshot()

	n := len(texts)
	minDF := EffectiveMinDF(v.opts.MinDF, n)
	maxDoc := v.opts.MaxDF * float64(n)

	ranked := stats.Ranked()
	keep, pruned := filterRanked(ranked, minDF, maxDoc)
	lifted := false
	if len(keep) == 0 && n < SmallCorpusDocs && len(ranked) > 0 {
		v.log.Printf("[warn] max_df=%.2f removed every term from a %d-document corpus; ignoring the ceiling for this run", v.opts.MaxDF, n)
		keep, pruned = filterRanked(ranked, minDF, float64(n))
		lifted = true
	}
	if len(keep) > v.opts.MaxFeatures {
		keep = keep[:v.opts.MaxFeatures]
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: no terms left after filtering %d documents (min_df=%d, max_df=%.2f); add more reviews or lower TOPIC_MIN_DF / raise TOPIC_MAX_FEATURES",
			internalerr.ErrEmptyVocabulary, n, minDF, v.opts.MaxDF)
	}

	vocab := make(Vocabulary, len(keep))
	index := make(map[string]int, len(keep))
	for i, s := range keep {
		vocab[i] = Term{Text: s.Token, DocFreq: s.DF, Count: s.Count, Index: i}
		index[s.Token] = i
	}

	m := &Matrix{
		docs:           n,
		terms:          len(vocab),
		indptr:         make([]int, 1, n+1),
		Vocab:          vocab,
		EffectiveMinDF: minDF,
		CeilingLifted:  lifted,
		Pruned:         pruned,
	}
	for _, toks := range docTokens {
		counts := make(map[int]float64)
		for _, tok := range toks {
			if col, ok := index[tok]; ok {
				counts[col]++
			}
		}
		cols := make([]int, 0, len(counts))
		for col := range counts {
			cols = append(cols, col)
		}
		sort.Ints(cols)
		for _, col := range cols {
			m.ind = append(m.ind, col)
			m.data = append(m.data, counts[col])
		}
		m.indptr = append(m.indptr, len(m.ind))
	}
	return m, nil
}

// filterRanked applies the document-frequency window and returns the kept
// terms plus those dropped by the ceiling.
func filterRanked(ranked []analytics.TokenStat, minDF int, maxDoc float64) ([]analytics.TokenStat, []Pruned) {
	keep := make([]analytics.TokenStat, 0, len(ranked))
	var pruned []Pruned
	for _, s := range ranked {
		if s.DF < int64(minDF) {
			continue
		}
		if float64(s.DF) > maxDoc {
			pruned = append(pruned, Pruned{Token: s.Token, DF: s.DF, DFPercent: s.DFPercent})
			continue
		}
		keep = append(keep, s)
	}
	sort.Slice(pruned, func(i, j int) bool {
		if pruned[i].DF != pruned[j].DF {
			return pruned[i].DF > pruned[j].DF
		}
		return pruned[i].Token < pruned[j].Token
	})
	return keep, pruned
}

// tokenizeAll splits every text; results are stored by index so the output
// does not depend on the worker count.
func (v *Vectorizer) tokenizeAll(ctx context.Context, texts []string) ([][]string, error) {
	out := make([][]string, len(texts))
	workers := v.opts.Workers
	if workers <= 1 || len(texts) < 2*workers {
		for i, text := range texts {
			out[i] = v.tok.Tokenize(text)
		}
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(texts) + workers - 1) / workers
	for start := 0; start < len(texts); start += chunk {
		lo, hi := start, min(start+chunk, len(texts))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = v.tok.Tokenize(texts[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
