// Package extract converts binary attachments that providers cannot
// ingest natively into plain text.
package extract

import (
	"fmt"

	"github.com/abhisek/quizforge/internal/llm"
)

// MIMEPPTX is the media type of PowerPoint presentations.
const MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Extractor turns an attachment into plain text.
type Extractor interface {
	// Extract returns the text content of the attachment.
	Extract(att *llm.Attachment) (string, error)
	// Supports reports whether this extractor handles the media type.
	Supports(mime string) bool
}

// ForAttachment returns the extractor for an attachment's media type,
// or nil when the attachment should pass through to the provider
// untouched.
func ForAttachment(att *llm.Attachment) Extractor {
	if att == nil {
		return nil
	}
	for _, e := range extractors {
		if e.Supports(att.MIME) {
			return e
		}
	}
	return nil
}

var extractors = []Extractor{
	&pptxExtractor{},
}

// UnsupportedTypeError reports an attachment media type no extractor
// and no provider can handle.
type UnsupportedTypeError struct {
	MIME string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported attachment type %q", e.MIME)
}
