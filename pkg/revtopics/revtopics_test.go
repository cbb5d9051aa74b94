package revtopics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/revtopics/internal/logger"
	"github.com/cognicore/revtopics/pkg/revtopics/config"
	"github.com/cognicore/revtopics/pkg/revtopics/dataset"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/store/memstore"
)

// testConfig points every path into dir and keeps the model small.
func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Paths.Cleaned = filepath.Join(dir, "reviews_clean.csv")
	cfg.Paths.Enriched = filepath.Join(dir, "reviews_with_sentiment.csv")
	cfg.Paths.Topics = filepath.Join(dir, "out", "topics.csv")
	cfg.Topics = 2
	cfg.TermsPerTopic = 3
	cfg.MaxIter = 5
	cfg.BatchSize = 16
	return cfg
}

func writeCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

var reviewHeader = []string{"productId", "cleanedText", "sentimentLabel"}

var reviewPhrases = []string{
	"battery life is short and the battery drains fast",
	"battery charge lasts all day great battery",
	"screen is bright and the display is sharp",
	"display cracked screen flickers",
	"sound quality bass is deep speaker loud",
	"speaker sound crackles bass distorted",
}

func reviewRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		sentiment := "positive"
		if i%3 == 0 {
			sentiment = "negative"
		}
		rows[i] = []string{
			fmt.Sprintf("p%03d", i),
			reviewPhrases[i%len(reviewPhrases)],
			sentiment,
		}
	}
	return rows
}

func newPipeline(cfg config.Config, opts Options) *Pipeline {
	opts.Config = cfg
	opts.Logger = logger.Discard()
	return New(opts)
}

func TestExampleScenario(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MinDF = 1
	cfg.TermsPerTopic = 2
	writeCSV(t, cfg.Paths.Cleaned, []string{"productId", "cleanedText"}, [][]string{
		{"a", "great battery life"},
		{"b", "battery life is bad"},
		{"c", "screen is great"},
	})

	rep, err := newPipeline(cfg, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Source.Kind != dataset.KindCleaned {
		t.Errorf("Source.Kind = %s, want cleaned", rep.Source.Kind)
	}
	if rep.VocabSize != 5 {
		t.Errorf("VocabSize = %d, want 5", rep.VocabSize)
	}
	if rep.MinDF != 1 {
		t.Errorf("MinDF = %d, want 1 for a small corpus", rep.MinDF)
	}

	topics, err := dataset.ReadTopics(cfg.Paths.Topics)
	if err != nil {
		t.Fatalf("ReadTopics: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	vocab := map[string]bool{"great": true, "battery": true, "life": true, "bad": true, "screen": true}
	for i, tp := range topics {
		if tp.ID != i {
			t.Errorf("topic %d has id %d", i, tp.ID)
		}
		if len(tp.TopTerms) != 2 {
			t.Errorf("topic %d has %d terms, want 2", i, len(tp.TopTerms))
		}
		seen := map[string]bool{}
		for _, term := range tp.TopTerms {
			if !vocab[term] {
				t.Errorf("topic %d term %q is not in the vocabulary", i, term)
			}
			if seen[term] {
				t.Errorf("topic %d repeats %q", i, term)
			}
			seen[term] = true
		}
	}

	annotated, err := dataset.Read(cfg.Paths.Cleaned, cfg.Columns)
	if err != nil {
		t.Fatalf("read annotated: %v", err)
	}
	if annotated.Len() != 3 {
		t.Fatalf("annotated rows = %d, want 3", annotated.Len())
	}
	for i, r := range annotated.Records {
		if r.TopicID == nil || *r.TopicID < 0 || *r.TopicID >= 2 {
			t.Errorf("row %d topic = %v, want 0 or 1", i, r.TopicID)
		}
	}
	if annotated.Records[0].ProductID != "a" || annotated.Records[2].ProductID != "c" {
		t.Error("row order should be preserved")
	}
}

func TestPrefersEnrichedDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeCSV(t, cfg.Paths.Enriched, reviewHeader, reviewRows(30))
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader[:2], [][]string{{"x", "unused text"}})
	cleanedBefore, _ := os.ReadFile(cfg.Paths.Cleaned)

	rep, err := newPipeline(cfg, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Source.Kind != dataset.KindEnriched || rep.AnnotatedPath != cfg.Paths.Enriched {
		t.Errorf("expected enriched source, got %+v", rep.Source)
	}
	cleanedAfter, _ := os.ReadFile(cfg.Paths.Cleaned)
	if !bytes.Equal(cleanedBefore, cleanedAfter) {
		t.Error("cleaned dataset should be untouched when the enriched one is used")
	}

	annotated, err := dataset.Read(cfg.Paths.Enriched, cfg.Columns)
	if err != nil {
		t.Fatal(err)
	}
	if annotated.Len() != 30 {
		t.Errorf("annotated rows = %d, want 30", annotated.Len())
	}
	if annotated.Records[0].SentimentLabel != dataset.Negative {
		t.Errorf("sentiment column should survive, got %q", annotated.Records[0].SentimentLabel)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() ([]byte, []byte) {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.Topics = 3
		writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(60))
		if _, err := newPipeline(cfg, Options{}).Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		topics, err := os.ReadFile(cfg.Paths.Topics)
		if err != nil {
			t.Fatal(err)
		}
		annotated, err := os.ReadFile(cfg.Paths.Cleaned)
		if err != nil {
			t.Fatal(err)
		}
		return topics, annotated
	}

	t1, a1 := run()
	t2, a2 := run()
	if !bytes.Equal(t1, t2) {
		t.Errorf("topic tables differ between runs:\n%s\n---\n%s", t1, t2)
	}
	if !bytes.Equal(a1, a2) {
		t.Error("topic assignments differ between runs")
	}
}

func TestSamplingKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.SampleSize = 20
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(50))

	rep, err := newPipeline(cfg, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.LoadedDocs != 50 || rep.SampledDocs != 20 {
		t.Errorf("Loaded/Sampled = %d/%d, want 50/20", rep.LoadedDocs, rep.SampledDocs)
	}

	annotated, err := dataset.Read(cfg.Paths.Cleaned, cfg.Columns)
	if err != nil {
		t.Fatal(err)
	}
	if annotated.Len() != 20 {
		t.Fatalf("annotated rows = %d, want 20", annotated.Len())
	}
	for i := 1; i < annotated.Len(); i++ {
		if annotated.Records[i-1].ProductID >= annotated.Records[i].ProductID {
			t.Fatalf("sampled rows out of order at %d: %s then %s", i,
				annotated.Records[i-1].ProductID, annotated.Records[i].ProductID)
		}
	}
}

func TestTopicTableCompleteness(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Topics = 4
	cfg.TermsPerTopic = 50 // more than the vocabulary
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(24))

	rep, err := newPipeline(cfg, Options{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(rep.Summary.Topics) != 4 {
		t.Fatalf("expected 4 topics, got %d", len(rep.Summary.Topics))
	}
	for _, tp := range rep.Summary.Topics {
		if len(tp.TopTerms) != rep.VocabSize {
			t.Errorf("topic %d has %d terms, want the whole vocabulary (%d)", tp.ID, len(tp.TopTerms), rep.VocabSize)
		}
	}
	total := 0
	for _, c := range rep.Summary.DocCounts {
		total += c
	}
	if total != 24 {
		t.Errorf("doc counts sum to %d, want 24", total)
	}
}

func TestArchivesRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(12))
	st := memstore.New()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	rep, err := newPipeline(cfg, Options{Store: st, Now: func() time.Time { return now }}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.RunID == "" {
		t.Fatal("RunID should be set when a store is configured")
	}

	run, ok, err := st.GetRun(context.Background(), rep.RunID)
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if !run.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, now)
	}
	if run.SourceKind != "cleaned" || run.Docs != 12 || run.Topics != 2 {
		t.Errorf("unexpected run header: %+v", run)
	}
	if len(run.TopicRows) != 2 || len(run.TopicRows[0].TopTerms) != 3 {
		t.Errorf("unexpected topic rows: %+v", run.TopicRows)
	}
}

func TestLiftedCeilingPrunesNothing(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.Paths.Cleaned, []string{"productId", "cleanedText"}, [][]string{
		{"a", "great phone"},
		{"b", "great phone"},
		{"c", "great phone"},
	})
	st := memstore.New()

	rep, err := newPipeline(cfg, Options{Store: st}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !rep.CeilingLifted || rep.VocabSize != 2 {
		t.Fatalf("lifted=%v vocab=%d, want the ceiling lifted over 2 terms", rep.CeilingLifted, rep.VocabSize)
	}
	if len(rep.Pruned) != 0 {
		t.Errorf("Pruned = %+v, want none when the ceiling is lifted", rep.Pruned)
	}
	run, _, err := st.GetRun(context.Background(), rep.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Pruned) != 0 {
		t.Errorf("archived pruned terms = %+v, want none", run.Pruned)
	}
}

func TestPrunedTermsArePerRun(t *testing.T) {
	cfg := testConfig(t.TempDir())
	p := newPipeline(cfg, Options{})

	rows := reviewRows(30)
	for i := range rows {
		rows[i][1] = "phone " + rows[i][1]
	}
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, rows)
	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if len(first.Pruned) != 1 || first.Pruned[0].Token != "phone" || first.Pruned[0].DF != 30 {
		t.Fatalf("first Pruned = %+v, want only phone with df 30", first.Pruned)
	}

	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(30))
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(second.Pruned) != 0 {
		t.Errorf("second Pruned = %+v, want none carried over from the first run", second.Pruned)
	}
}

func TestMissingInputs(t *testing.T) {
	cfg := testConfig(t.TempDir())
	_, err := newPipeline(cfg, Options{}).Run(context.Background())
	if !errors.Is(err, internalerr.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(cfg.Paths.Topics); !os.IsNotExist(statErr) {
		t.Error("no topic table should be written")
	}
}

func TestMissingCleanedColumn(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.Paths.Cleaned, []string{"productId", "reviewText"}, [][]string{{"a", "Great battery"}})
	_, err := newPipeline(cfg, Options{}).Run(context.Background())
	if !errors.Is(err, internalerr.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestEmptyVocabularyWritesNothing(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.Paths.Cleaned, []string{"productId", "cleanedText"}, [][]string{
		{"a", "the and is"},
		{"b", "of to a"},
	})
	before, _ := os.ReadFile(cfg.Paths.Cleaned)

	_, err := newPipeline(cfg, Options{}).Run(context.Background())
	if !errors.Is(err, internalerr.ErrEmptyVocabulary) {
		t.Fatalf("error = %v, want ErrEmptyVocabulary", err)
	}
	if _, statErr := os.Stat(cfg.Paths.Topics); !os.IsNotExist(statErr) {
		t.Error("no topic table should be written")
	}
	after, _ := os.ReadFile(cfg.Paths.Cleaned)
	if !bytes.Equal(before, after) {
		t.Error("input dataset should be untouched on failure")
	}
}

func TestInvalidTopicCount(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Topics = 0
	writeCSV(t, cfg.Paths.Cleaned, []string{"cleanedText"}, [][]string{{"battery"}})
	_, err := newPipeline(cfg, Options{}).Run(context.Background())
	if !errors.Is(err, internalerr.ErrInvalidTopicCount) {
		t.Fatalf("error = %v, want ErrInvalidTopicCount", err)
	}
}

func TestCancelledContext(t *testing.T) {
	cfg := testConfig(t.TempDir())
	writeCSV(t, cfg.Paths.Cleaned, reviewHeader, reviewRows(12))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(cfg, Options{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(cfg.Paths.Topics); !os.IsNotExist(statErr) {
		t.Error("no topic table should be written after cancellation")
	}
}
