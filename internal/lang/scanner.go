package lang

import "strings"

// scanner is a byte-position cursor over template source. It backs both
// the text/control splitter and the expression parser; there is no
// separate token stream because text and control syntax interleave
// freely in Allay source.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) rest() string {
	return s.src[s.pos:]
}

func (s *scanner) peekByte() (byte, bool) {
	if s.eof() {
		return 0, false
	}
	return s.src[s.pos], true
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.rest(), p)
}

// consumePrefix advances past p if present, reporting whether it matched.
func (s *scanner) consumePrefix(p string) bool {
	if s.hasPrefix(p) {
		s.pos += len(p)
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

// indexOfAny returns the offset (relative to current pos) of the nearest
// occurrence of any marker in markers, or -1 if none occur before EOF.
func (s *scanner) indexOfAny(markers ...string) int {
	best := -1
	rest := s.rest()
	for _, m := range markers {
		if i := strings.Index(rest, m); i >= 0 && (best == -1 || i < best) {
			best = i
		}
	}
	return best
}

// identByte reports whether b may appear in an Allay identifier: ASCII
// letters, digits, and underscore.
func identByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// readIdentifier consumes a run of identifier bytes starting at pos.
func (s *scanner) readIdentifier() string {
	start := s.pos
	for !s.eof() && identByte(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// readWhile consumes bytes while pred holds.
func (s *scanner) readWhile(pred func(byte) bool) string {
	start := s.pos
	for !s.eof() && pred(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}
