package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/abhisek/quizforge/internal/llm"
	"github.com/abhisek/quizforge/internal/mcq"
	"github.com/abhisek/quizforge/internal/quizgen"
)

const ndjsonContentType = "application/x-ndjson"

// generatePayload is the JSON body of a generation request.
type generatePayload struct {
	Material string `json:"material"`
	Easy     int    `json:"easy" validate:"gte=0"`
	Medium   int    `json:"medium" validate:"gte=0"`
	Hard     int    `json:"hard" validate:"gte=0"`
	Explain  bool   `json:"explain"`
}

// solvePayload is the JSON body of a solving request.
type solvePayload struct {
	Questions string `json:"questions"`
	Explain   bool   `json:"explain"`
}

// exportPayload is the JSON body of a PDF export request.
type exportPayload struct {
	Records []mcq.MCQ `json:"records" validate:"required,min=1"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload generatePayload
	attachment, err := s.decodeRequest(r, &payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := mcq.GenerationRequest{
		Text:       payload.Material,
		Attachment: attachment,
		Counts:     mcq.TierCounts{Easy: payload.Easy, Medium: payload.Medium, Hard: payload.Hard},
		Explain:    payload.Explain,
	}

	sink := newStreamWriter(w)
	if err := s.svc.Generate(r.Context(), req, sink); err != nil {
		s.streamFailure(w, r, sink, err)
	}
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var payload solvePayload
	attachment, err := s.decodeRequest(r, &payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := mcq.SolvingRequest{
		Text:       payload.Questions,
		Attachment: attachment,
		Explain:    payload.Explain,
	}

	sink := newStreamWriter(w)
	if err := s.svc.Solve(r.Context(), req, sink); err != nil {
		s.streamFailure(w, r, sink, err)
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeError(w, http.StatusNotImplemented, errors.New("PDF export is not available"))
		return
	}
	var payload exportPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pdf, err := s.renderer.RenderPDF(r.Context(), payload.Records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// decodeRequest reads either a JSON body or a multipart form with an
// optional file part named "attachment". Multipart scalar fields use
// the same names as the JSON payload.
func (s *Server) decodeRequest(r *http.Request, payload any) (*llm.Attachment, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
			return nil, err
		}
		return nil, s.validate.Struct(payload)
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	if err := decodeForm(r, payload); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &llm.Attachment{MIME: mimeType, Data: data}, nil
}

// decodeForm fills a payload struct from multipart form values by
// marshaling them through the JSON field names.
func decodeForm(r *http.Request, payload any) error {
	values := map[string]any{}
	for key, vals := range r.MultipartForm.Value {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch {
		case v == "true" || v == "false":
			values[key] = v == "true"
		default:
			if n, err := strconv.Atoi(v); err == nil {
				values[key] = n
			} else {
				values[key] = v
			}
		}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, payload)
}

// streamFailure reports a service error. Once chunks have gone out the
// status line is already written, so the error can only travel as a
// final error chunk.
func (s *Server) streamFailure(w http.ResponseWriter, r *http.Request, sink *streamWriter, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	if sink.started {
		sink.Send(quizgen.Chunk{Error: err.Error(), Completed: true})
		return
	}
	writeError(w, statusFor(err), err)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var exhausted *llm.ErrExhausted
	if errors.As(err, &exhausted) {
		return http.StatusBadGateway
	}
	var parseErr *mcq.ParseError
	if errors.As(err, &parseErr) || errors.Is(err, mcq.ErrAllRecordsMalformed) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
