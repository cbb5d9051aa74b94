// Package lda fits Latent Dirichlet Allocation with the online (mini-batch)
// SCVB0 solver from github.com/james-bowman/nlp.
package lda

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/james-bowman/nlp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/revtopics/internal/logger"
	"github.com/cognicore/revtopics/pkg/revtopics/inference"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/vectorize"
)

// Options configures the engine.
type Options struct {
	Topics    int    // K
	MaxIter   int    // passes over the corpus
	BatchSize int    // documents per mini-batch
	Seed      uint64 // initialisation seed
	// Workers is handed to the solver. 1 keeps runs reproducible bit for bit;
	// higher values merge batch statistics in scheduling order.
	Workers int
	Logger  *log.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Topics:    8,
		MaxIter:   10,
		BatchSize: 2048,
		Seed:      42,
		Workers:   1,
	}
}

// Engine implements inference.Engine.
type Engine struct {
	opts Options
	log  *log.Logger
}

var _ inference.Engine = (*Engine)(nil)

// New creates an LDA engine.
func New(opts Options) *Engine {
	return &Engine{opts: opts, log: logger.OrDefault(opts.Logger)}
}

// Fit runs the solver and returns row-normalised document-topic weights and
// the topic-term pseudo-counts.
func (e *Engine) Fit(ctx context.Context, m *vectorize.Matrix) (inference.Result, error) {
	k := e.opts.Topics
	if k < 1 {
		return inference.Result{}, fmt.Errorf("%w: %d (need at least 1)", internalerr.ErrInvalidTopicCount, k)
	}
	docs, terms := m.Dims()
	if docs == 0 || terms == 0 {
		return inference.Result{}, fmt.Errorf("%w: empty matrix [%dx%d]", internalerr.ErrInvalidInput, docs, terms)
	}
	if k > terms {
		e.log.Printf("[warn] n_topics=%d exceeds vocabulary size %d; some topics will share terms", k, terms)
	}
	if k > docs {
		e.log.Printf("[warn] n_topics=%d exceeds document count %d; some topics will have no documents", k, docs)
	}

	w := mat.NewDense(docs, k, nil)
	rows := m.NonEmptyRows()
	if len(rows) < docs {
		e.log.Printf("[info] %d of %d documents have no vocabulary terms; they get a uniform topic distribution", docs-len(rows), docs)
	}
	if len(rows) == 0 {
		inference.NormalizeRows(w)
		return inference.Result{DocTopic: w, TopicTerm: mat.NewDense(k, terms, nil)}, nil
	}

	if err := ctx.Err(); err != nil {
		return inference.Result{}, err
	}

	model := e.newModel()
	// nlp expects features in rows and documents in columns.
	dt, err := model.FitTransform(m.Subset(rows).T())
	if err != nil {
		return inference.Result{}, fmt.Errorf("fit lda: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return inference.Result{}, err
	}

	for c, row := range rows {
		for topic := 0; topic < k; topic++ {
			w.Set(row, topic, dt.At(topic, c))
		}
	}
	inference.NormalizeRows(w)

	h := mat.DenseCopyOf(model.Components())
	clampNegative(h)

	return inference.Result{DocTopic: w, TopicTerm: h}, nil
}

func (e *Engine) newModel() *nlp.LatentDirichletAllocation {
	k := e.opts.Topics
	model := nlp.NewLatentDirichletAllocation(k)
	model.Iterations = e.opts.MaxIter
	model.BatchSize = e.opts.BatchSize
	model.Alpha = 1 / float64(k)
	model.Eta = 1 / float64(k)
	model.Processes = max(e.opts.Workers, 1)
	model.Rnd = rand.New(rand.NewSource(e.opts.Seed))
	return model
}

func clampNegative(h *mat.Dense) {
	r, c := h.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := h.At(i, j); v < 0 || math.IsNaN(v) {
				h.Set(i, j, 0)
			}
		}
	}
}
