package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/cognicore/revtopics/pkg/revtopics/config"
	"github.com/cognicore/revtopics/pkg/revtopics/store"
	"github.com/cognicore/revtopics/pkg/revtopics/store/sqlite"
)

type runJSON struct {
	ID            string      `json:"id"`
	CreatedAt     time.Time   `json:"created_at"`
	InputPath     string      `json:"input_path"`
	SourceKind    string      `json:"source_kind"`
	Topics        int         `json:"n_topics"`
	TermsPerTopic int         `json:"n_words"`
	Docs          int         `json:"docs"`
	VocabSize     int         `json:"vocab_size"`
	Seed          uint64      `json:"seed"`
	TopicRows     []topicJSON `json:"topics,omitempty"`
	Pruned        []pruneJSON `json:"pruned_high_df,omitempty"`
}

type topicJSON struct {
	TopicID    int      `json:"topicId"`
	TopTerms   []string `json:"topTerms"`
	DocCount   int      `json:"doc_count"`
	MeanWeight float64  `json:"mean_weight"`
}

type pruneJSON struct {
	Token string `json:"token"`
	DF    int64  `json:"df"`
}

func main() {
	var (
		dbPath = flag.String("db", os.Getenv(config.EnvArchiveDB), "SQLite run archive (default $TOPIC_ARCHIVE_DB)")
		limit  = flag.Int("limit", 20, "Maximum runs to list")
		runID  = flag.String("run", "", "Optional: print one run with its topics")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required (or set TOPIC_ARCHIVE_DB)")
	}

	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer st.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *runID != "" {
		run, ok, err := st.GetRun(ctx, *runID)
		if err != nil {
			log.Fatalf("load run: %v", err)
		}
		if !ok {
			log.Fatalf("run %s not found", *runID)
		}
		if err := enc.Encode(toJSON(run)); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}

	runs, err := st.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, toJSON(r))
	}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func toJSON(r store.Run) runJSON {
	out := runJSON{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		InputPath:     r.InputPath,
		SourceKind:    r.SourceKind,
		Topics:        r.Topics,
		TermsPerTopic: r.TermsPerTopic,
		Docs:          r.Docs,
		VocabSize:     r.VocabSize,
		Seed:          r.Seed,
	}
	for _, t := range r.TopicRows {
		out.TopicRows = append(out.TopicRows, topicJSON{
			TopicID:    t.TopicID,
			TopTerms:   t.TopTerms,
			DocCount:   t.DocCount,
			MeanWeight: t.MeanWeight,
		})
	}
	for _, p := range r.Pruned {
		out.Pruned = append(out.Pruned, pruneJSON{Token: p.Token, DF: p.DF})
	}
	return out
}
