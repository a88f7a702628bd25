package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abhisek/quizforge/internal/llm"
)

// pptxExtractor pulls the text runs out of a PowerPoint file. A .pptx
// is a zip archive with one XML document per slide under ppt/slides/.
type pptxExtractor struct{}

var slidePathPattern = regexp.MustCompile(`^ppt/slides/slide([0-9]+)\.xml$`)

func (e *pptxExtractor) Supports(mime string) bool {
	return mime == MIMEPPTX
}

func (e *pptxExtractor) Extract(att *llm.Attachment) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(att.Data), int64(len(att.Data)))
	if err != nil {
		return "", fmt.Errorf("opening presentation archive: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePathPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("presentation archive contains no slides")
	}
	// Archive entry order is arbitrary; slides go out in deck order.
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for _, s := range slides {
		text, err := slideText(s.file)
		if err != nil {
			return "", fmt.Errorf("reading slide %d: %w", s.num, err)
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Slide %d ---\n%s\n\n", s.num, text)
	}
	return strings.TrimSpace(b.String()), nil
}

// slideText collects the <a:t> text runs of one slide, one line per
// paragraph.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var b strings.Builder
	var line strings.Builder
	inRun := false
	dec := xml.NewDecoder(rc)
	flushLine := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		line.Reset()
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				flushLine()
			}
		case xml.CharData:
			if inRun {
				line.Write(t)
			}
		}
	}
	flushLine()
	return strings.TrimSpace(b.String()), nil
}
