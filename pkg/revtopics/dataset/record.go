// Package dataset reads and writes the tabular review files shared with the
// upstream cleaning/sentiment steps and the dashboard.
package dataset

import (
	"strconv"
	"strings"
)

// Sentiment is the polarity label written by the sentiment step.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Columns names the dataset columns this stage reads and writes.
type Columns struct {
	ReviewText   string `yaml:"review_text"`
	CleanedText  string `yaml:"cleaned_text"`
	Rating       string `yaml:"rating"`
	ProductID    string `yaml:"product_id"`
	ProductTitle string `yaml:"product_title"`
	Sentiment    string `yaml:"sentiment"`
	Topic        string `yaml:"topic"`
}

// DefaultColumns returns the column names of the persisted datasets.
func DefaultColumns() Columns {
	return Columns{
		ReviewText:   "reviewText",
		CleanedText:  "cleanedText",
		Rating:       "rating",
		ProductID:    "productId",
		ProductTitle: "productTitle",
		Sentiment:    "sentimentLabel",
		Topic:        "topicId",
	}
}

// Record is one review row. Cells keeps the original row so columns this
// stage does not know about are written back untouched.
type Record struct {
	Cells []string

	ReviewText     string
	CleanedText    string
	Rating         *float64
	ProductID      string
	ProductTitle   string
	SentimentLabel Sentiment
	TopicID        *int
}

// Corpus is an ordered set of records plus the header they came with.
type Corpus struct {
	Path    string
	Header  []string
	Records []Record

	cols  Columns
	index map[string]int
}

// Len returns the number of records.
func (c *Corpus) Len() int { return len(c.Records) }

// Texts returns the cleaned text of every record, in order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.CleanedText
	}
	return out
}

// HasColumn reports whether the header contains name.
func (c *Corpus) HasColumn(name string) bool {
	_, ok := c.index[name]
	return ok
}

// WithRecords returns a corpus sharing c's header but holding recs.
func (c *Corpus) WithRecords(recs []Record) *Corpus {
	return &Corpus{Path: c.Path, Header: c.Header, Records: recs, cols: c.cols, index: c.index}
}

// SetTopics assigns topics[i] to record i.
func (c *Corpus) SetTopics(topics []int) {
	for i := range c.Records {
		id := topics[i]
		c.Records[i].TopicID = &id
	}
}

func newRecord(cells []string, cols Columns, index map[string]int) Record {
	get := func(name string) string {
		if i, ok := index[name]; ok && i < len(cells) {
			return cells[i]
		}
		return ""
	}
	r := Record{
		Cells:          cells,
		ReviewText:     get(cols.ReviewText),
		CleanedText:    get(cols.CleanedText),
		ProductID:      get(cols.ProductID),
		ProductTitle:   get(cols.ProductTitle),
		SentimentLabel: Sentiment(strings.ToLower(strings.TrimSpace(get(cols.Sentiment)))),
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(get(cols.Rating)), 64); err == nil {
		r.Rating = &v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(get(cols.Topic))); err == nil {
		r.TopicID = &v
	}
	return r
}
