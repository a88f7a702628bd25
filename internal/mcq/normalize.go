package mcq

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/abhisek/quizforge/internal/llm"
)

// ErrAllRecordsMalformed reports that the model produced records but
// none of them could be normalized. Distinct from a legitimately empty
// set, which normalizes to zero records without error.
var ErrAllRecordsMalformed = errors.New("every record in model output is malformed")

// ParseError reports output that could not be parsed as JSON even after
// repair.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model output is not parseable JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Field synonym tables. Matching is case-insensitive on the lowercased
// key, in table order.
var (
	questionFields    = []string{"question", "question_text", "questiontext", "text", "prompt", "stem"}
	optionFields      = []string{"options", "choices", "answers", "alternatives", "distractors"}
	answerFields      = []string{"answer", "correct_answer", "correctanswer", "correct", "correct_option", "correctoption", "right_answer", "solution", "key"}
	explanationFields = []string{"explanation", "rationale", "reasoning", "reason", "why"}
)

// wrapperKeys are probed in order when the top level is an object
// instead of the expected array.
var wrapperKeys = []string{"questions", "results", "items", "data", "mcqs", "quiz", "records"}

// answerLetterPattern extracts a leading option letter from verbose
// answer values such as "A) Paris" or "c. because ...".
var answerLetterPattern = regexp.MustCompile(`^\s*["']?\s*([A-Da-d])\b`)

// Normalizer converts raw model output into canonical question records,
// repairing structural damage and reconciling field-name drift across
// providers.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger falls back to
// slog.Default.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize parses raw model output and returns the canonical records.
// Records that cannot be normalized are dropped with a warning; if the
// output held records but all of them dropped, ErrAllRecordsMalformed
// is returned. An output that parses to zero records returns an empty
// slice and no error.
func (n *Normalizer) Normalize(raw json.RawMessage) ([]MCQ, error) {
	repaired := sanitize(string(raw))

	var top any
	if err := json.Unmarshal([]byte(repaired), &top); err != nil {
		return nil, &ParseError{Err: err}
	}

	items, err := recordList(top)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []MCQ{}, nil
	}

	out := make([]MCQ, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			n.logger.Warn("dropping non-object record in model output", "index", i)
			continue
		}
		rec, err := normalizeRecord(obj)
		if err != nil {
			n.logger.Warn("dropping malformed record in model output", "index", i, "error", err)
			continue
		}
		if err := validateRecord(rec); err != nil {
			n.logger.Warn("dropping record failing schema validation", "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrAllRecordsMalformed
	}
	return out, nil
}

// recordList unwraps the top-level value into the record array. A bare
// array is taken as-is; an object is probed for a known wrapper key,
// and failing that, treated as a single record if it looks like one.
func recordList(top any) ([]any, error) {
	switch v := top.(type) {
	case []any:
		return v, nil
	case map[string]any:
		lowered := lowerKeys(v)
		for _, key := range wrapperKeys {
			if arr, ok := lowered[key].([]any); ok {
				return arr, nil
			}
		}
		if _, ok := lookupField(v, questionFields); ok {
			return []any{v}, nil
		}
		return nil, &ParseError{Err: fmt.Errorf("object has no recognized wrapper key")}
	}
	return nil, &ParseError{Err: fmt.Errorf("top-level value is %T, expected array or object", top)}
}

func normalizeRecord(obj map[string]any) (MCQ, error) {
	var rec MCQ

	q, ok := lookupField(obj, questionFields)
	if !ok {
		return rec, fmt.Errorf("no question field")
	}
	question, ok := q.(string)
	if !ok || strings.TrimSpace(question) == "" {
		return rec, fmt.Errorf("question is not a non-empty string")
	}
	rec.Question = strings.TrimSpace(question)

	opts, err := normalizeOptions(obj)
	if err != nil {
		return rec, err
	}
	rec.Options = opts

	rec.Answer = normalizeAnswer(obj)

	if e, ok := lookupField(obj, explanationFields); ok {
		if s, ok := e.(string); ok {
			rec.Explanation = strings.TrimSpace(s)
		}
	}
	return rec, nil
}

// normalizeOptions reconciles the option set from any of the accepted
// shapes: an array in A-D order, an object keyed by label in either
// case, or label fields spread across the record itself.
func normalizeOptions(obj map[string]any) (Options, error) {
	raw, ok := lookupField(obj, optionFields)
	if !ok {
		// Some outputs spread the labels across the record.
		if opts, ok := optionsFromLabels(obj); ok {
			return opts, nil
		}
		return Options{}, fmt.Errorf("no options field")
	}

	switch v := raw.(type) {
	case []any:
		return optionsFromArray(v)
	case map[string]any:
		if opts, ok := optionsFromLabels(v); ok {
			return opts, nil
		}
		return Options{}, fmt.Errorf("options object has no A-D keys")
	}
	return Options{}, fmt.Errorf("options is %T, expected array or object", raw)
}

func optionsFromArray(arr []any) (Options, error) {
	if len(arr) < 2 {
		return Options{}, fmt.Errorf("options array has %d entries, need at least 2", len(arr))
	}
	texts := make([]string, 0, 4)
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			s = fmt.Sprintf("%v", item)
		}
		texts = append(texts, strings.TrimSpace(s))
		if len(texts) == 4 {
			break
		}
	}
	var opts Options
	for i, text := range texts {
		switch i {
		case 0:
			opts.A = text
		case 1:
			opts.B = text
		case 2:
			opts.C = text
		case 3:
			opts.D = text
		}
	}
	return opts, nil
}

// optionsFromLabels reads label-keyed options, tolerating case and
// prefixed keys such as "option_a". It reports false when fewer than
// two labels are present.
func optionsFromLabels(m map[string]any) (Options, bool) {
	var opts Options
	found := 0
	for key, value := range m {
		label, ok := labelFromKey(key)
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprintf("%v", value)
		}
		s = strings.TrimSpace(s)
		switch label {
		case OptionA:
			opts.A = s
		case OptionB:
			opts.B = s
		case OptionC:
			opts.C = s
		case OptionD:
			opts.D = s
		}
		found++
	}
	return opts, found >= 2
}

// labelFromKey matches option-label keys: "A", "b", "option_c", "optionD".
func labelFromKey(key string) (OptionLabel, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "option_")
	k = strings.TrimPrefix(k, "option")
	k = strings.TrimSpace(strings.Trim(k, "_.)"))
	if len(k) != 1 {
		return "", false
	}
	l := OptionLabel(strings.ToUpper(k))
	return l, ValidLabel(l)
}

// normalizeAnswer resolves the correct-answer label, extracting a
// leading letter from verbose values and mapping numeric indexes.
// Defaults to A when nothing recoverable is present.
func normalizeAnswer(obj map[string]any) OptionLabel {
	raw, ok := lookupField(obj, answerFields)
	if !ok {
		return OptionA
	}
	switch v := raw.(type) {
	case string:
		if m := answerLetterPattern.FindStringSubmatch(v); m != nil {
			return OptionLabel(strings.ToUpper(m[1]))
		}
	case float64:
		labels := Labels()
		if i := int(v); i >= 0 && i < len(labels) {
			return labels[i]
		}
	}
	return OptionA
}

// lookupField returns the first value in m whose lowercased key matches
// one of the synonyms, in synonym order.
func lookupField(m map[string]any, synonyms []string) (any, bool) {
	lowered := lowerKeys(m)
	for _, s := range synonyms {
		if v, ok := lowered[s]; ok {
			return v, true
		}
	}
	return nil, false
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// validateRecord checks a canonical record against the question schema.
func validateRecord(rec MCQ) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return llm.ValidateJSON(recordSchema, data)
}
