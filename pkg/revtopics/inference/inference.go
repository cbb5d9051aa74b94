// Package inference defines the topic-engine contract and its result checks.
package inference

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/vectorize"
)

// Engine fits a latent-topic model to a document-term matrix.
type Engine interface {
	Fit(ctx context.Context, m *vectorize.Matrix) (Result, error)
}

// Result holds the two fitted weight matrices.
type Result struct {
	// DocTopic is [docs x K]; every row is a probability distribution.
	DocTopic *mat.Dense
	// TopicTerm is [K x vocab]; every entry is non-negative.
	TopicTerm *mat.Dense
}

// Topics returns K.
func (r Result) Topics() int {
	_, k := r.DocTopic.Dims()
	return k
}

// Check verifies shapes against the input and the distribution invariants.
func (r Result) Check(docs, terms int) error {
	if r.DocTopic == nil || r.TopicTerm == nil {
		return fmt.Errorf("%w: missing result matrix", internalerr.ErrInvalidInput)
	}
	wr, wk := r.DocTopic.Dims()
	hk, hv := r.TopicTerm.Dims()
	if wr != docs || hv != terms || wk != hk {
		return fmt.Errorf("%w: shapes W=[%dx%d] H=[%dx%d] for input [%dx%d]",
			internalerr.ErrInvalidInput, wr, wk, hk, hv, docs, terms)
	}
	for i := 0; i < wr; i++ {
		sum := 0.0
		for k := 0; k < wk; k++ {
			v := r.DocTopic.At(i, k)
			if v < 0 || math.IsNaN(v) {
				return fmt.Errorf("%w: W[%d,%d] = %v", internalerr.ErrInvalidInput, i, k, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-6 {
			return fmt.Errorf("%w: W row %d sums to %v", internalerr.ErrInvalidInput, i, sum)
		}
	}
	return nil
}

// NormalizeRows rescales each row of w to sum to 1. Rows that are all zero
// or contain NaN become uniform.
func NormalizeRows(w *mat.Dense) {
	rows, k := w.Dims()
	for i := 0; i < rows; i++ {
		sum := 0.0
		bad := false
		for j := 0; j < k; j++ {
			v := w.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				bad = true
				break
			}
			sum += v
		}
		if bad || sum == 0 {
			for j := 0; j < k; j++ {
				w.Set(i, j, 1/float64(k))
			}
			continue
		}
		for j := 0; j < k; j++ {
			w.Set(i, j, w.At(i, j)/sum)
		}
	}
}
