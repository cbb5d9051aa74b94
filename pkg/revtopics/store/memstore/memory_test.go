package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/store"
)

func sampleRun(id string) store.Run {
	return store.Run{
		ID:         id,
		CreatedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		InputPath:  "data/processed/reviews_with_sentiment.csv",
		SourceKind: "enriched",
		Topics:     2,
		TopicRows: []store.Topic{
			{TopicID: 0, TopTerms: []string{"battery", "life"}, DocCount: 3},
			{TopicID: 1, TopTerms: []string{"screen", "great"}, DocCount: 1},
		},
		Pruned: []store.PrunedTerm{{Token: "product", DF: 40}},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.SaveRun(ctx, sampleRun("01A")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, ok, err := s.GetRun(ctx, "01A")
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if len(got.TopicRows) != 2 || got.TopicRows[1].TopTerms[0] != "screen" {
		t.Errorf("unexpected topics: %+v", got.TopicRows)
	}

	// returned copies must not alias the stored run
	got.TopicRows[0].TopTerms[0] = "mutated"
	again, _, _ := s.GetRun(ctx, "01A")
	if again.TopicRows[0].TopTerms[0] != "battery" {
		t.Error("store should return independent copies")
	}

	if _, ok, _ := s.GetRun(ctx, "missing"); ok {
		t.Error("missing run should report ok=false")
	}
}

func TestSaveRunRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SaveRun(ctx, sampleRun("01A")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRun(ctx, sampleRun("01A")); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("duplicate SaveRun error = %v, want ErrInvalidInput", err)
	}
	if err := s.SaveRun(ctx, sampleRun("")); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("empty id error = %v, want ErrInvalidInput", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"01B", "01A", "01C"} {
		if err := s.SaveRun(ctx, sampleRun(id)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "01C" || runs[1].ID != "01B" {
		t.Errorf("ListRuns = %+v", runs)
	}
	if runs[0].TopicRows != nil {
		t.Error("ListRuns should return headers only")
	}
}
