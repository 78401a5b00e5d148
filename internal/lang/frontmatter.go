package lang

import (
	"regexp"

	"allay/internal/lang/ast"
)

// htmlCommentRe strips `<!-- ... -->` non-greedy across lines, matching
// the preprocessing pass described in spec.md §4.1.
var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// yamlFrontMatterRe and tomlFrontMatterRe back match_meta_only: a cheap
// regex-only extraction that does not invoke the full grammar.
var (
	yamlFrontMatterRe = regexp.MustCompile(`(?s)^---\s*(.*?)\s*---`)
	tomlFrontMatterRe = regexp.MustCompile(`(?s)^\+\+\+\s*(.*?)\s*\+\+\+`)
)

func stripComments(source string) string {
	return htmlCommentRe.ReplaceAllString(source, "")
}

// matchMetaOnly extracts front matter without running the full parser,
// per spec.md §4.1's match_meta_only convenience function.
func matchMetaOnly(source string) (raw string, format ast.MetaFormat, ok bool) {
	if m := yamlFrontMatterRe.FindStringSubmatch(source); m != nil {
		return m[1], ast.MetaYAML, true
	}
	if m := tomlFrontMatterRe.FindStringSubmatch(source); m != nil {
		return m[1], ast.MetaTOML, true
	}
	return "", ast.MetaNone, false
}

// matchRaw returns source with HTML comments stripped, matching spec's
// match_raw (comment stripping is the one pre-compile transform the core
// always applies; plugin pre-compile hooks run upstream of this call).
func matchRaw(source string) string {
	return stripComments(source)
}

// splitFrontMatter consumes a leading front-matter block from s, if
// present, returning the matched raw metadata text, its format, and the
// remaining template body. s is assumed already comment-stripped.
func splitFrontMatter(s *scanner) (raw string, format ast.MetaFormat, found bool) {
	if s.consumePrefix("---") {
		return consumeDelimited(s, "---"), ast.MetaYAML, true
	}
	if s.consumePrefix("+++") {
		return consumeDelimited(s, "+++"), ast.MetaTOML, true
	}
	return "", ast.MetaNone, false
}

func consumeDelimited(s *scanner, delim string) string {
	rest := s.rest()
	idx := indexOf(rest, delim)
	if idx < 0 {
		// No closing delimiter: the whole remainder of the input is taken
		// as metadata and the template body is left empty. This is not
		// reported as a parse error.
		s.pos += len(rest)
		return trimSpace(rest)
	}
	raw := rest[:idx]
	s.pos += idx + len(delim)
	return trimSpace(raw)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
