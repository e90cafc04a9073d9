package services

import (
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// GlyphRun is one laid-out line of text with its absolute baseline position
// relative to the layout origin (top-left of the block)
type GlyphRun struct {
	Text  string
	X, Y  fixed.Int26_6 // baseline position
	Width fixed.Int26_6
}

// TextLayout is the result of measuring and wrapping a text against a
// maximum width. Runs are ordered top to bottom.
type TextLayout struct {
	Runs       []GlyphRun
	Width      int // widest line, px
	Height     int // total block height, px
	LineHeight fixed.Int26_6
	Ascent     fixed.Int26_6
}

// Lines returns the number of laid-out lines (blank lines included)
func (l *TextLayout) Lines() int {
	if l.LineHeight == 0 {
		return 0
	}
	return l.Height / l.LineHeight.Ceil()
}

// Truncate drops lines beyond maxLines and reports whether anything was cut.
// Blank lines occupy a line slot without producing a run, so the cut goes by
// each run's line index rather than run count: every kept baseline stays
// inside the reported height.
func (l *TextLayout) Truncate(maxLines int) bool {
	if maxLines <= 0 || l.Lines() <= maxLines {
		return false
	}
	lineHeight := l.LineHeight.Ceil()
	cut := len(l.Runs)
	for i, run := range l.Runs {
		if (run.Y - l.Ascent).Ceil()/lineHeight >= maxLines {
			cut = i
			break
		}
	}
	l.Runs = l.Runs[:cut]
	l.Height = lineHeight * maxLines
	width := 0
	for _, run := range l.Runs {
		if w := run.Width.Ceil(); w > width {
			width = w
		}
	}
	l.Width = width
	return true
}

// LayoutService measures and wraps overlay text. Wrapping is greedy: explicit
// line breaks first, then cumulative advance widths against the maximum
// width. Each CJK codepoint is an independent break opportunity; Latin and
// Cyrillic runs break only at whitespace. A single token wider than the
// maximum width is placed on its own line unbroken - never hyphenated, never
// clipped mid-glyph. Identical inputs always produce identical positions.
type LayoutService struct{}

// NewLayoutService creates a LayoutService
func NewLayoutService() *LayoutService {
	return &LayoutService{}
}

// Layout wraps text against maxWidthPx using the metrics of face
func (s *LayoutService) Layout(text string, face font.Face, maxWidthPx int) *TextLayout {
	metrics := face.Metrics()
	layout := &TextLayout{
		LineHeight: metrics.Height,
		Ascent:     metrics.Ascent,
	}

	maxWidth := fixed.I(maxWidthPx)
	lineIdx := 0
	for _, logical := range strings.Split(text, "\n") {
		wrapped := wrapLine(logical, face, maxWidth)
		if len(wrapped) == 0 {
			// Blank logical line keeps its vertical space
			lineIdx++
			continue
		}
		for _, line := range wrapped {
			width := font.MeasureString(face, line)
			layout.Runs = append(layout.Runs, GlyphRun{
				Text:  line,
				X:     0,
				Y:     metrics.Ascent + fixed.I(lineIdx*metrics.Height.Ceil()),
				Width: width,
			})
			if w := width.Ceil(); w > layout.Width {
				layout.Width = w
			}
			lineIdx++
		}
	}
	layout.Height = lineIdx * metrics.Height.Ceil()
	return layout
}

// token is a minimal unit of wrapping: a whitespace span, a single CJK
// codepoint, or a maximal run of other characters (a word)
type token struct {
	text    string
	isSpace bool
}

func splitTokens(line string) []token {
	var tokens []token
	var word strings.Builder
	var space strings.Builder

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, token{text: word.String()})
			word.Reset()
		}
	}
	flushSpace := func() {
		if space.Len() > 0 {
			tokens = append(tokens, token{text: space.String(), isSpace: true})
			space.Reset()
		}
	}

	for _, r := range line {
		switch {
		case unicode.IsSpace(r):
			flushWord()
			space.WriteRune(r)
		case isCJK(r):
			flushWord()
			flushSpace()
			tokens = append(tokens, token{text: string(r)})
		default:
			flushSpace()
			word.WriteRune(r)
		}
	}
	flushWord()
	flushSpace()
	return tokens
}

// isCJK reports whether r wraps per-character rather than per-word
func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func wrapLine(line string, face font.Face, maxWidth fixed.Int26_6) []string {
	if line == "" {
		return nil
	}

	var lines []string
	var cur string

	flush := func() {
		if trimmed := strings.TrimRight(cur, " \t"); trimmed != "" {
			lines = append(lines, trimmed)
		}
		cur = ""
	}

	for _, tok := range splitTokens(line) {
		if tok.isSpace {
			// Whitespace never starts a wrapped line
			if cur != "" {
				cur += tok.text
			}
			continue
		}

		candidate := cur + tok.text
		if cur == "" || font.MeasureString(face, candidate) <= maxWidth {
			cur = candidate
			continue
		}

		flush()
		// An over-wide token stays alone on its own line unbroken
		cur = tok.text
	}
	flush()

	return lines
}
