package server

import (
	"net/http"

	"github.com/abhisek/quizforge/internal/quizgen"
)

// streamWriter adapts an http.ResponseWriter into a quizgen.Sink. The
// NDJSON content type and status line go out with the first chunk, so
// failures before any chunk can still produce a proper error response.
type streamWriter struct {
	w       http.ResponseWriter
	sink    quizgen.Sink
	started bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, sink: quizgen.NewNDJSONSink(w)}
}

func (s *streamWriter) Send(chunk quizgen.Chunk) error {
	if !s.started {
		s.w.Header().Set("Content-Type", ndjsonContentType)
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	return s.sink.Send(chunk)
}
