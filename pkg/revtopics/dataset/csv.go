package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/summarize"
)

// Read loads a CSV/TSV dataset. The cleaned-text column is required.
func Read(path string, cols Columns) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrConfiguration, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delimiter(path)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", internalerr.ErrConfiguration, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	for i := range header {
		header[i] = cleanCell(header[i])
	}

	c := &Corpus{Path: path, Header: header, cols: cols, index: indexOf(header)}
	if !c.HasColumn(cols.CleanedText) {
		return nil, fmt.Errorf("%w: %s has no %q column; re-run the cleaning step",
			internalerr.ErrConfiguration, path, cols.CleanedText)
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", filepath.Base(path), line, err)
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: %s line %d: expected %d fields, saw %d",
				internalerr.ErrInvalidInput, filepath.Base(path), line, len(header), len(row))
		}
		c.Records = append(c.Records, newRecord(row, cols, c.index))
	}
	return c, nil
}

// Write stores the corpus at path, adding or overwriting the topic column.
// The file is replaced atomically.
func Write(path string, c *Corpus) error {
	data, err := Encode(path, c)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// Encode renders the corpus in the format implied by path's extension.
func Encode(path string, c *Corpus) ([]byte, error) {
	header := append([]string(nil), c.Header...)
	topicCol, ok := c.index[c.cols.Topic]
	if !ok {
		topicCol = len(header)
		header = append(header, c.cols.Topic)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter(path)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	for i, r := range c.Records {
		row := make([]string, len(header))
		copy(row, r.Cells)
		if r.TopicID != nil {
			row[topicCol] = strconv.Itoa(*r.TopicID)
		} else {
			row[topicCol] = ""
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return buf.Bytes(), nil
}

// TopicColumns are the topic table headers.
var TopicColumns = []string{"topicId", "topTerms"}

// WriteTopics stores the topic table (topicId, comma-joined top terms).
func WriteTopics(path string, topics []summarize.Topic) error {
	data, err := EncodeTopics(path, topics)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// EncodeTopics renders the topic table in the format implied by path's extension.
func EncodeTopics(path string, topics []summarize.Topic) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter(path)
	if err := w.Write(TopicColumns); err != nil {
		return nil, fmt.Errorf("encode topics header: %w", err)
	}
	for _, t := range topics {
		if err := w.Write([]string{strconv.Itoa(t.ID), strings.Join(t.TopTerms, ", ")}); err != nil {
			return nil, fmt.Errorf("encode topic %d: %w", t.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode topics: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadTopics loads a topic table written by WriteTopics.
func ReadTopics(path string) ([]summarize.Topic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = delimiter(path)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", internalerr.ErrInvalidInput, path)
	}
	topics := make([]summarize.Topic, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: short topic row %v", internalerr.ErrInvalidInput, row)
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: topic id %q", internalerr.ErrInvalidInput, row[0])
		}
		var terms []string
		for _, term := range strings.Split(row[1], ",") {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}
		topics = append(topics, summarize.Topic{ID: id, TopTerms: terms})
	}
	return topics, nil
}

// Export writes the topic table and the annotated corpus. Both files are
// encoded before either is replaced, so an encoding failure leaves the
// previous outputs untouched.
func Export(topicsPath string, topics []summarize.Topic, corpusPath string, c *Corpus) error {
	topicData, err := EncodeTopics(topicsPath, topics)
	if err != nil {
		return err
	}
	corpusData, err := Encode(corpusPath, c)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(topicsPath, topicData); err != nil {
		return fmt.Errorf("write topics: %w", err)
	}
	if err := WriteFileAtomic(corpusPath, corpusData); err != nil {
		return fmt.Errorf("write annotated dataset: %w", err)
	}
	return nil
}

func delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func indexOf(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}
