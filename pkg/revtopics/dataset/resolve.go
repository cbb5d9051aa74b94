package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
)

// Kind identifies which candidate dataset was chosen.
type Kind string

const (
	KindEnriched Kind = "enriched"
	KindCleaned  Kind = "cleaned"
)

// Source is the resolved input, which is also the export target.
type Source struct {
	Path string
	Kind Kind
	// Fallback is set when the enriched dataset was missing.
	Fallback bool
}

// Resolve prefers the sentiment-enriched dataset and falls back to the
// cleaned-only one.
func Resolve(enrichedPath, cleanedPath string) (Source, error) {
	ok, err := exists(enrichedPath)
	if err != nil {
		return Source{}, err
	}
	if ok {
		return Source{Path: enrichedPath, Kind: KindEnriched}, nil
	}
	ok, err = exists(cleanedPath)
	if err != nil {
		return Source{}, err
	}
	if ok {
		return Source{Path: cleanedPath, Kind: KindCleaned, Fallback: enrichedPath != ""}, nil
	}
	return Source{}, fmt.Errorf("%w: neither %s nor %s exists; run the cleaning step first",
		internalerr.ErrConfiguration, orNone(enrichedPath), orNone(cleanedPath))
}

func exists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", internalerr.ErrConfiguration, path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s is a directory", internalerr.ErrConfiguration, path)
	}
	return true, nil
}

func orNone(path string) string {
	if path == "" {
		return "(unset)"
	}
	return path
}
