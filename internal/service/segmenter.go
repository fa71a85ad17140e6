package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceSegmenter splits text into ordered sentence strings.
type SentenceSegmenter interface {
	Segment(text string) ([]string, error)
}

// PunktSegmenter uses the pretrained English punkt model.
type PunktSegmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSegmenter loads the embedded English punkt training data.
func NewPunktSegmenter() (*PunktSegmenter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load punkt model: %w: %v", ErrConfiguration, err)
	}
	return &PunktSegmenter{tokenizer: tok}, nil
}

// Segment returns trimmed, non-empty sentences in document order.
func (p *PunktSegmenter) Segment(text string) (out []string, err error) {
	if p == nil || p.tokenizer == nil {
		return nil, fmt.Errorf("punkt segmenter not loaded")
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("punkt tokenize: %v", r)
		}
	}()

	for _, s := range p.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// SplitParagraphs treats every non-empty blank-line separated paragraph as one unit.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
