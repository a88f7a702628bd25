package quizgen

import (
	"encoding/json"
	"io"

	"github.com/abhisek/quizforge/internal/mcq"
)

// Chunk is one envelope of a streamed response. Content chunks carry
// records with Completed false; the stream always ends with a single
// terminal chunk where Completed is true and nothing else is set.
type Chunk struct {
	// Records are the questions produced by one batch. Absent on the
	// terminal chunk and on error chunks.
	Records []mcq.MCQ `json:"records,omitempty"`

	// Completed marks the terminal chunk.
	Completed bool `json:"completed"`

	// Total is the number of questions the whole request asked for.
	Total int `json:"total,omitempty"`

	// Current is the cumulative number of questions delivered so far.
	Current int `json:"current,omitempty"`

	// Error describes a failed batch. The stream continues after an
	// error chunk; only Completed ends it.
	Error string `json:"error,omitempty"`
}

// Sink receives stream chunks in order.
type Sink interface {
	Send(chunk Chunk) error
}

// flusher is the subset of http.Flusher the NDJSON sink needs.
type flusher interface {
	Flush()
}

// ndjsonSink writes each chunk as one JSON line, flushing after every
// line when the writer supports it.
type ndjsonSink struct {
	enc   *json.Encoder
	flush func()
}

// NewNDJSONSink returns a Sink that writes newline-delimited JSON to w.
func NewNDJSONSink(w io.Writer) Sink {
	s := &ndjsonSink{enc: json.NewEncoder(w), flush: func() {}}
	if f, ok := w.(flusher); ok {
		s.flush = f.Flush
	}
	return s
}

func (s *ndjsonSink) Send(chunk Chunk) error {
	if err := s.enc.Encode(chunk); err != nil {
		return err
	}
	s.flush()
	return nil
}

// CollectSink accumulates chunks in memory. Used by the CLI and tests,
// where incremental delivery has no consumer.
type CollectSink struct {
	Chunks []Chunk
}

func (s *CollectSink) Send(chunk Chunk) error {
	s.Chunks = append(s.Chunks, chunk)
	return nil
}

// Records returns all records across collected chunks in order.
func (s *CollectSink) Records() []mcq.MCQ {
	var out []mcq.MCQ
	for _, c := range s.Chunks {
		out = append(out, c.Records...)
	}
	return out
}
