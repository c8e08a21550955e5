package metadata

import (
	"strconv"
	"strings"
)

// Encode renders the compact marker grammar:
//
//	p{page}/{total}|g{rows}x{cols}|f{start}+{count}[|c{w}x{h}][|m{margin}s{spacing}][|@{fps}]
//
// Cell size and margin/spacing are written only when both halves are set.
func Encode(m SheetMetadata) string {
	var b strings.Builder
	b.WriteString("p")
	b.WriteString(strconv.Itoa(m.PageNumber))
	b.WriteString("/")
	b.WriteString(strconv.Itoa(m.TotalPages))
	b.WriteString("|g")
	b.WriteString(strconv.Itoa(m.Rows))
	b.WriteString("x")
	b.WriteString(strconv.Itoa(m.Cols))
	b.WriteString("|f")
	b.WriteString(strconv.Itoa(m.FrameStart))
	b.WriteString("+")
	b.WriteString(strconv.Itoa(m.FrameCount))

	if m.CellWidth != nil && m.CellHeight != nil {
		b.WriteString("|c")
		b.WriteString(strconv.Itoa(*m.CellWidth))
		b.WriteString("x")
		b.WriteString(strconv.Itoa(*m.CellHeight))
	}
	if m.Margin != nil && m.Spacing != nil {
		b.WriteString("|m")
		b.WriteString(strconv.Itoa(*m.Margin))
		b.WriteString("s")
		b.WriteString(strconv.Itoa(*m.Spacing))
	}
	if m.FPS != nil {
		b.WriteString("|@")
		b.WriteString(formatFPS(*m.FPS))
	}
	return b.String()
}

// formatFPS uses one decimal place unless that would lose precision.
func formatFPS(fps float64) string {
	short := strconv.FormatFloat(fps, 'f', 1, 64)
	if v, err := strconv.ParseFloat(short, 64); err == nil && v == fps {
		return short
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

// Decode parses the compact grammar. It never panics; any malformed,
// truncated or out-of-range input returns ok == false.
func Decode(text string) (SheetMetadata, bool) {
	p := parser{s: strings.TrimSpace(text)}
	var m SheetMetadata

	ok := p.expect('p') &&
		p.uint(&m.PageNumber) && p.expect('/') && p.uint(&m.TotalPages) &&
		p.expect('|') && p.expect('g') &&
		p.uint(&m.Rows) && p.expect('x') && p.uint(&m.Cols) &&
		p.expect('|') && p.expect('f') &&
		p.uint(&m.FrameStart) && p.expect('+') && p.uint(&m.FrameCount)
	if !ok {
		return SheetMetadata{}, false
	}

	for !p.done() {
		if !p.expect('|') {
			return SheetMetadata{}, false
		}
		tag, ok := p.next()
		if !ok {
			return SheetMetadata{}, false
		}
		switch tag {
		case 'c':
			var w, h int
			if !(p.uint(&w) && p.expect('x') && p.uint(&h)) {
				return SheetMetadata{}, false
			}
			m.CellWidth, m.CellHeight = Ptr(w), Ptr(h)
		case 'm':
			var margin, spacing int
			if !(p.uint(&margin) && p.expect('s') && p.uint(&spacing)) {
				return SheetMetadata{}, false
			}
			m.Margin, m.Spacing = Ptr(margin), Ptr(spacing)
		case '@':
			var fps float64
			if !p.decimal(&fps) {
				return SheetMetadata{}, false
			}
			m.FPS = Ptr(fps)
		case '|':
			return SheetMetadata{}, false
		default:
			// Unknown segments are skipped so newer sheets still decode.
			p.skipSegment()
			continue
		}
		if !p.done() && p.peek() != '|' {
			return SheetMetadata{}, false
		}
	}

	if m.Validate() != nil {
		return SheetMetadata{}, false
	}
	return m, true
}

// maxDigits keeps integer fields well inside int range.
const maxDigits = 9

type parser struct {
	s   string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) next() (byte, bool) {
	if p.done() {
		return 0, false
	}
	c := p.s[p.pos]
	p.pos++
	return c, true
}

func (p *parser) expect(c byte) bool {
	if p.done() || p.s[p.pos] != c {
		return false
	}
	p.pos++
	return true
}

func (p *parser) digits() string {
	start := p.pos
	for !p.done() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) uint(dst *int) bool {
	run := p.digits()
	if run == "" || len(run) > maxDigits {
		return false
	}
	v, err := strconv.Atoi(run)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func (p *parser) decimal(dst *float64) bool {
	start := p.pos
	whole := p.digits()
	if whole == "" || len(whole) > maxDigits {
		return false
	}
	if p.peek() == '.' {
		p.pos++
		if p.digits() == "" {
			return false
		}
	}
	v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func (p *parser) skipSegment() {
	for !p.done() && p.s[p.pos] != '|' {
		p.pos++
	}
}
