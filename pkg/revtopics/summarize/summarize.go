// Package summarize turns fitted topic weights into readable topics and
// per-document hard assignments.
package summarize

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/revtopics/pkg/revtopics/inference"
)

// Topic is one latent topic with its most representative terms first.
type Topic struct {
	ID       int
	TopTerms []string
	Weights  []float64
}

// Summary is the human-readable view of a fitted model.
type Summary struct {
	Topics      []Topic
	Assignments []int     // topic per document
	DocCounts   []int     // documents assigned to each topic
	MeanWeight  []float64 // average W column, i.e. share of the corpus per topic
}

// Summarize extracts the top n terms per topic and assigns every document.
func Summarize(res inference.Result, terms []string, n int) Summary {
	k := res.Topics()
	s := Summary{
		Topics:      TopTerms(res.TopicTerm, terms, n),
		Assignments: Assign(res.DocTopic),
		DocCounts:   make([]int, k),
		MeanWeight:  make([]float64, k),
	}
	for _, a := range s.Assignments {
		s.DocCounts[a]++
	}
	docs, _ := res.DocTopic.Dims()
	if docs > 0 {
		for topic := 0; topic < k; topic++ {
			sum := 0.0
			for d := 0; d < docs; d++ {
				sum += res.DocTopic.At(d, topic)
			}
			s.MeanWeight[topic] = sum / float64(docs)
		}
	}
	return s
}

// TopTerms picks, for every row of h, the n highest-weighted terms in
// descending weight. Equal weights keep the lower column first. Fewer than
// n terms are returned only when the vocabulary is smaller than n.
func TopTerms(h mat.Matrix, terms []string, n int) []Topic {
	k, v := h.Dims()
	if n > v {
		n = v
	}
	topics := make([]Topic, k)
	idx := make([]int, v)
	for topic := 0; topic < k; topic++ {
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return h.At(topic, idx[a]) > h.At(topic, idx[b])
		})
		t := Topic{ID: topic, TopTerms: make([]string, n), Weights: make([]float64, n)}
		for i := 0; i < n; i++ {
			t.TopTerms[i] = terms[idx[i]]
			t.Weights[i] = h.At(topic, idx[i])
		}
		topics[topic] = t
	}
	return topics
}

// Assign returns the argmax of every row of w; ties go to the lowest topic.
func Assign(w mat.Matrix) []int {
	docs, k := w.Dims()
	out := make([]int, docs)
	for d := 0; d < docs; d++ {
		best := 0
		for topic := 1; topic < k; topic++ {
			if w.At(d, topic) > w.At(d, best) {
				best = topic
			}
		}
		out[d] = best
	}
	return out
}
