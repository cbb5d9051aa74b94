// Package revtopics discovers latent topics in a product-review corpus and
// annotates every review with its dominant topic.
package revtopics

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/revtopics/internal/logger"
	"github.com/cognicore/revtopics/pkg/revtopics/config"
	"github.com/cognicore/revtopics/pkg/revtopics/dataset"
	"github.com/cognicore/revtopics/pkg/revtopics/inference"
	"github.com/cognicore/revtopics/pkg/revtopics/inference/lda"
	"github.com/cognicore/revtopics/pkg/revtopics/ingest"
	"github.com/cognicore/revtopics/pkg/revtopics/normalize"
	"github.com/cognicore/revtopics/pkg/revtopics/sample"
	"github.com/cognicore/revtopics/pkg/revtopics/stoplist"
	"github.com/cognicore/revtopics/pkg/revtopics/store"
	"github.com/cognicore/revtopics/pkg/revtopics/summarize"
	"github.com/cognicore/revtopics/pkg/revtopics/vectorize"
)

// Pipeline runs one topic-discovery pass over the persisted review dataset.
type Pipeline struct {
	cfg     config.Config
	tok     *ingest.Tokenizer
	engine  inference.Engine
	store   store.Store
	log     *log.Logger
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// Options configures a Pipeline. Only Config is required.
type Options struct {
	Config    config.Config
	Tokenizer *ingest.Tokenizer // nil: built from Stoplist with the text normalizer
	Stoplist  *stoplist.Manager // used only when Tokenizer is nil; nil: English
	Engine    inference.Engine  // nil: online LDA from Config
	Store     store.Store       // nil: runs are not archived
	Logger    *log.Logger
	Now       func() time.Time
}

// New creates a pipeline with the given dependencies
func New(opts Options) *Pipeline {
	l := logger.OrDefault(opts.Logger)
	cfg := opts.Config

	tok := opts.Tokenizer
	if tok == nil {
		stops := opts.Stoplist
		if stops == nil {
			stops = stoplist.NewManager(stoplist.English())
		}
		tok = ingest.NewTokenizer(stops)
		tok.SetNormalizer(normalize.Text)
	}
	engine := opts.Engine
	if engine == nil {
		engine = lda.New(lda.Options{
			Topics:    cfg.Topics,
			MaxIter:   cfg.MaxIter,
			BatchSize: cfg.BatchSize,
			Seed:      cfg.Seed,
			Workers:   cfg.Workers,
			Logger:    l,
		})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		cfg:     cfg,
		tok:     tok,
		engine:  engine,
		store:   opts.Store,
		log:     l,
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Report describes a finished run.
type Report struct {
	RunID         string // empty when no store is configured
	Source        dataset.Source
	LoadedDocs    int
	SampledDocs   int
	VocabSize     int
	MinDF         int // after the small-corpus rule
	CeilingLifted bool
	Summary       summarize.Summary
	TopicsPath    string
	AnnotatedPath string
	Pruned        []vectorize.Pruned // terms above max_df, this run only
}

// Run resolves the input, fits the topic model and writes both outputs.
// Nothing is written unless every step before export succeeds.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	cfg := p.cfg
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	src, err := dataset.Resolve(cfg.Paths.Enriched, cfg.Paths.Cleaned)
	if err != nil {
		return Report{}, err
	}
	if src.Fallback {
		p.log.Printf("[info] %s not found. Using %s instead.", cfg.Paths.Enriched, src.Path)
	}
	p.log.Printf("[info] Loading %s (%s dataset) ...", src.Path, src.Kind)

	corpus, err := dataset.Read(src.Path, cfg.Columns)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Source: src, LoadedDocs: corpus.Len()}
	p.log.Printf("[info] Loaded %d rows", rep.LoadedDocs)

	if cfg.SampleSize > 0 && corpus.Len() > cfg.SampleSize {
		corpus = corpus.WithRecords(sample.Take(corpus.Records, cfg.SampleSize, cfg.Seed))
		p.log.Printf("[info] Sampled down to %d rows for quick modeling (set %s to change)", corpus.Len(), config.EnvSampleSize)
		p.log.Printf("[warn] %s will be rewritten with the %d sampled rows only", src.Path, corpus.Len())
	}
	rep.SampledDocs = corpus.Len()

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep.MinDF = vectorize.EffectiveMinDF(cfg.MinDF, corpus.Len())
	p.log.Printf("[info] Vectorizing (min_df=%d, max_df=%.2f, max_features=%d, stopwords=%d) ...",
		rep.MinDF, cfg.MaxDF, cfg.MaxFeatures, p.tok.Stoplist().Len())
	vec := vectorize.New(p.tok, vectorize.Options{
		MinDF:       cfg.MinDF,
		MaxDF:       cfg.MaxDF,
		MaxFeatures: cfg.MaxFeatures,
		Workers:     cfg.Workers,
		Logger:      p.log,
	})
	m, err := vec.FitTransform(ctx, corpus.Texts())
	if err != nil {
		return Report{}, err
	}
	docs, terms := m.Dims()
	rep.VocabSize = terms
	rep.CeilingLifted = m.CeilingLifted
	rep.Pruned = m.Pruned
	if len(rep.Pruned) > 0 {
		p.log.Printf("[info] %d terms above max_df were pruned", len(rep.Pruned))
	}

	p.log.Printf("[info] Fitting LDA (n_topics=%d, online solver) on shape=(%d, %d) ...", cfg.Topics, docs, terms)
	res, err := p.engine.Fit(ctx, m)
	if err != nil {
		return Report{}, err
	}
	if err := res.Check(docs, terms); err != nil {
		return Report{}, fmt.Errorf("engine result: %w", err)
	}
	p.log.Printf("[info] LDA done.")

	rep.Summary = summarize.Summarize(res, m.Vocab.Terms(), cfg.TermsPerTopic)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	corpus.SetTopics(rep.Summary.Assignments)
	if err := dataset.Export(cfg.Paths.Topics, rep.Summary.Topics, src.Path, corpus); err != nil {
		return Report{}, err
	}
	rep.TopicsPath = cfg.Paths.Topics
	rep.AnnotatedPath = src.Path
	p.log.Printf("[ok] Saved topics to %s", rep.TopicsPath)
	p.log.Printf("[ok] Updated topic assignments in %s", rep.AnnotatedPath)

	for _, t := range rep.Summary.Topics {
		p.log.Printf("[info] topic %d (%d docs, %.1f%%): %s",
			t.ID, rep.Summary.DocCounts[t.ID], 100*rep.Summary.MeanWeight[t.ID], strings.Join(t.TopTerms, ", "))
	}

	if p.store != nil {
		id, err := p.archive(ctx, rep)
		if err != nil {
			return rep, fmt.Errorf("archive run: %w", err)
		}
		rep.RunID = id
		p.log.Printf("[ok] Archived run %s", id)
	}
	return rep, nil
}

func (p *Pipeline) archive(ctx context.Context, rep Report) (string, error) {
	now := p.now()
	run := store.Run{
		ID:            ulid.MustNew(ulid.Timestamp(now), p.entropy).String(),
		CreatedAt:     now,
		InputPath:     rep.Source.Path,
		SourceKind:    string(rep.Source.Kind),
		Topics:        len(rep.Summary.Topics),
		TermsPerTopic: p.cfg.TermsPerTopic,
		Docs:          rep.SampledDocs,
		VocabSize:     rep.VocabSize,
		Seed:          p.cfg.Seed,
	}
	for _, t := range rep.Summary.Topics {
		run.TopicRows = append(run.TopicRows, store.Topic{
			TopicID:    t.ID,
			TopTerms:   t.TopTerms,
			DocCount:   rep.Summary.DocCounts[t.ID],
			MeanWeight: rep.Summary.MeanWeight[t.ID],
		})
	}
	for _, pr := range rep.Pruned {
		run.Pruned = append(run.Pruned, store.PrunedTerm{Token: pr.Token, DF: pr.DF})
	}
	if err := p.store.SaveRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}
