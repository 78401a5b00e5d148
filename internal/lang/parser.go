// Package lang implements Allay's template grammar: a hand-written
// recursive-descent parser producing the ast package's node tree. There
// is no separate lexer stage — text and control syntax interleave
// freely in source, so the parser scans the raw byte string directly,
// the way the PEG grammar it is ported from treats the whole file as
// one rule set.
package lang

import (
	"strconv"
	"strings"

	"allay/internal/lang/ast"
)

// ParseFile runs the full grammar: strip comments, split optional front
// matter, parse the template body. Mirrors parse_file(source) -> File
// from the original grammar.
func ParseFile(source string) (*ast.File, error) {
	stripped := stripComments(source)
	s := newScanner(stripped)

	file := &ast.File{}
	if raw, format, ok := splitFrontMatter(s); ok {
		file.HasMeta = true
		file.MetaFormat = format
		file.MetaRaw = raw
	}

	tmpl, term, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}
	if term != termEOF {
		return nil, errUnexpected(s.pos, "end of input")
	}
	file.Template = tmpl
	return file, nil
}

// MatchMetaOnly exposes the cheap regex-only front-matter extraction
// named in spec.md §4.1, bypassing the full grammar.
func MatchMetaOnly(source string) (raw string, format ast.MetaFormat, ok bool) {
	return matchMetaOnly(source)
}

// MatchRaw exposes the comment-stripped source without running the
// parser, named match_raw in spec.md §4.1.
func MatchRaw(source string) string {
	return matchRaw(source)
}

// terminator names why parseTemplate stopped reading controls.
type terminator int

const (
	termEOF terminator = iota
	termEnd
	termElse
	termClose
)

// parseTemplate reads Control nodes until EOF or one of the three
// special markers that only make sense as block terminators: "{- end -}",
// "{- else -}", or the start of a shortcode close tag "{</". The caller
// decides which terminators are valid in its context.
func parseTemplate(s *scanner) (ast.Template, terminator, error) {
	var controls []ast.Control
	for {
		if s.eof() {
			return ast.Template{Controls: controls}, termEOF, nil
		}
		if t, ok := peekTerminator(s); ok {
			return ast.Template{Controls: controls}, t, nil
		}

		ctrl, err := parseControl(s)
		if err != nil {
			return ast.Template{}, termEOF, err
		}
		controls = append(controls, ctrl)
	}
}

func peekTerminator(s *scanner) (terminator, bool) {
	if s.hasPrefix("{- end -}") || s.hasPrefix("{-end-}") {
		return termEnd, true
	}
	if s.hasPrefix("{- else -}") || s.hasPrefix("{-else-}") {
		return termElse, true
	}
	if s.hasPrefix("{</") {
		return termClose, true
	}
	return 0, false
}

func parseControl(s *scanner) (ast.Control, error) {
	switch {
	case s.hasPrefix("{:"):
		sub, err := parseSubstitution(s)
		if err != nil {
			return ast.Control{}, err
		}
		return ast.Control{Kind: ast.ControlSubstitution, Substitution: sub}, nil
	case s.hasPrefix("{-"):
		cmd, err := parseCommand(s)
		if err != nil {
			return ast.Control{}, err
		}
		return ast.Control{Kind: ast.ControlCommand, Command: cmd}, nil
	case s.hasPrefix("{<"):
		sc, err := parseShortcode(s)
		if err != nil {
			return ast.Control{}, err
		}
		return ast.Control{Kind: ast.ControlShortcode, Shortcode: sc}, nil
	default:
		return parseText(s), nil
	}
}

// parseText reads a run of plain text up to the next control marker or
// terminator, never consuming it.
func parseText(s *scanner) ast.Control {
	start := s.pos
	for !s.eof() {
		if s.hasPrefix("{:") || s.hasPrefix("{-") || s.hasPrefix("{<") || s.hasPrefix("{</") {
			break
		}
		s.pos++
	}
	return ast.Control{Kind: ast.ControlText, Text: s.src[start:s.pos]}
}

// --- substitution ---------------------------------------------------

func parseSubstitution(s *scanner) (*ast.Substitution, error) {
	start := s.pos
	if !s.consumePrefix("{:") {
		return nil, errUnexpected(s.pos, "'{:'")
	}
	s.skipSpace()
	expr, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if !s.consumePrefix(":}") {
		return nil, errUnterminated(start, "substitution")
	}
	return &ast.Substitution{Expr: expr}, nil
}

// --- commands ---------------------------------------------------------

func parseCommand(s *scanner) (*ast.Command, error) {
	start := s.pos
	if !s.consumePrefix("{-") {
		return nil, errUnexpected(s.pos, "'{-'")
	}
	s.skipSpace()
	kw := s.readIdentifier()
	switch kw {
	case "set":
		return parseSetCommand(s, start)
	case "for":
		return parseForCommand(s, start)
	case "with":
		return parseWithCommand(s, start)
	case "if":
		return parseIfCommand(s, start)
	case "include":
		return parseIncludeCommand(s, start)
	default:
		return nil, errUnexpected(start, "one of set/for/with/if/include")
	}
}

func expectCloseTag(s *scanner, start int, what string) error {
	s.skipSpace()
	if !s.consumePrefix("-}") {
		return errUnterminated(start, what)
	}
	return nil
}

func consumeEndTag(s *scanner) error {
	s.skipSpace()
	if s.consumePrefix("{- end -}") || s.consumePrefix("{-end-}") {
		return nil
	}
	return errUnexpectedEOF(s.pos, "'{- end -}'")
}

func parseSetCommand(s *scanner, start int) (*ast.Command, error) {
	s.skipSpace()
	if !s.consumePrefix("$") {
		return nil, errUnexpected(s.pos, "variable name ('$name')")
	}
	name := s.readIdentifier()
	s.skipSpace()
	if !s.consumePrefix("=") {
		return nil, errUnexpected(s.pos, "'='")
	}
	s.skipSpace()
	val, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	if err := expectCloseTag(s, start, "set command"); err != nil {
		return nil, err
	}
	return &ast.Command{Kind: ast.CommandSet, Set: &ast.SetCommand{Name: name, Value: val}}, nil
}

func parseForCommand(s *scanner, start int) (*ast.Command, error) {
	s.skipSpace()
	if !s.consumePrefix("$") {
		return nil, errUnexpected(s.pos, "item variable ('$name')")
	}
	item := s.readIdentifier()

	var index string
	hasIndex := false
	s.skipSpace()
	if s.consumePrefix(",") {
		s.skipSpace()
		if !s.consumePrefix("$") {
			return nil, errUnexpected(s.pos, "index variable ('$name')")
		}
		index = s.readIdentifier()
		hasIndex = true
	}

	s.skipSpace()
	if !s.consumePrefix(":") {
		return nil, errUnexpected(s.pos, "':'")
	}
	s.skipSpace()
	list, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	if err := expectCloseTag(s, start, "for command"); err != nil {
		return nil, err
	}

	inner, term, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}
	if term != termEnd {
		return nil, errUnexpectedEOF(s.pos, "'{- end -}'")
	}
	if err := consumeEndTag(s); err != nil {
		return nil, err
	}

	return &ast.Command{Kind: ast.CommandFor, For: &ast.ForCommand{
		ItemName: item, IndexName: index, HasIndex: hasIndex, List: list, Inner: inner,
	}}, nil
}

func parseWithCommand(s *scanner, start int) (*ast.Command, error) {
	s.skipSpace()
	scope, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	if err := expectCloseTag(s, start, "with command"); err != nil {
		return nil, err
	}

	inner, term, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}
	if term != termEnd {
		return nil, errUnexpectedEOF(s.pos, "'{- end -}'")
	}
	if err := consumeEndTag(s); err != nil {
		return nil, err
	}

	return &ast.Command{Kind: ast.CommandWith, With: &ast.WithCommand{Scope: scope, Inner: inner}}, nil
}

func parseIfCommand(s *scanner, start int) (*ast.Command, error) {
	s.skipSpace()
	cond, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	if err := expectCloseTag(s, start, "if command"); err != nil {
		return nil, err
	}

	inner, term, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}

	cmd := &ast.IfCommand{Condition: cond, Inner: inner}

	if term == termElse {
		s.skipSpace()
		if !(s.consumePrefix("{- else -}") || s.consumePrefix("{-else-}")) {
			return nil, errUnexpectedEOF(s.pos, "'{- else -}'")
		}
		elseInner, elseTerm, err := parseTemplate(s)
		if err != nil {
			return nil, err
		}
		if elseTerm != termEnd {
			return nil, errUnexpectedEOF(s.pos, "'{- end -}'")
		}
		cmd.HasElse = true
		cmd.Else = elseInner
		term = termEnd
	}

	if term != termEnd {
		return nil, errUnexpectedEOF(s.pos, "'{- end -}' or '{- else -}'")
	}
	if err := consumeEndTag(s); err != nil {
		return nil, err
	}

	return &ast.Command{Kind: ast.CommandIf, If: cmd}, nil
}

func parseIncludeCommand(s *scanner, start int) (*ast.Command, error) {
	s.skipSpace()
	path, err := parseStringLiteral(s)
	if err != nil {
		return nil, err
	}
	var params []ast.Expression
	s.skipSpace()
	for s.consumePrefix(",") {
		s.skipSpace()
		p, err := parseExpression(s)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
		s.skipSpace()
	}
	if err := expectCloseTag(s, start, "include command"); err != nil {
		return nil, err
	}
	return &ast.Command{Kind: ast.CommandInclude, Include: &ast.IncludeCommand{Path: path, Params: params}}, nil
}

// --- shortcodes ---------------------------------------------------------

func parseShortcode(s *scanner) (*ast.Shortcode, error) {
	start := s.pos
	if !s.consumePrefix("{<") {
		return nil, errUnexpected(s.pos, "'{<'")
	}
	s.skipSpace()
	name := s.readIdentifier()
	if name == "" {
		return nil, errUnexpected(s.pos, "shortcode name")
	}

	var params []ast.Expression
	for {
		s.skipSpace()
		if s.hasPrefix("/>}") || s.hasPrefix(">}") {
			break
		}
		p, err := parseExpression(s)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
		s.skipSpace()
		if !s.consumePrefix(",") {
			break
		}
	}
	s.skipSpace()

	if s.consumePrefix("/>}") {
		return &ast.Shortcode{Kind: ast.ShortcodeSingle, Name: name, Params: params}, nil
	}
	if !s.consumePrefix(">}") {
		return nil, errUnterminated(start, "shortcode")
	}

	inner, term, err := parseTemplate(s)
	if err != nil {
		return nil, err
	}
	if term != termClose {
		return nil, errUnexpectedEOF(s.pos, "shortcode close tag")
	}
	if !s.consumePrefix("{</") {
		return nil, errUnexpected(s.pos, "'{</'")
	}
	s.skipSpace()
	endName := s.readIdentifier()
	s.skipSpace()
	if !s.consumePrefix(">}") {
		return nil, errUnterminated(start, "shortcode close tag")
	}
	if endName != name {
		return nil, errShortcodeMismatch(name)
	}

	return &ast.Shortcode{Kind: ast.ShortcodeBlock, Name: name, Params: params, Inner: inner}, nil
}

// --- expressions (precedence climbing) -----------------------------

func parseExpression(s *scanner) (ast.Expression, error) {
	or, err := parseOr(s)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Or: or}, nil
}

func parseOr(s *scanner) (ast.Or, error) {
	first, err := parseAnd(s)
	if err != nil {
		return ast.Or{}, err
	}
	ands := []ast.And{first}
	for {
		s.skipSpace()
		if !s.consumePrefix("||") {
			break
		}
		s.skipSpace()
		next, err := parseAnd(s)
		if err != nil {
			return ast.Or{}, err
		}
		ands = append(ands, next)
	}
	return ast.Or{Ands: ands}, nil
}

func parseAnd(s *scanner) (ast.And, error) {
	first, err := parseComparison(s)
	if err != nil {
		return ast.And{}, err
	}
	cmps := []ast.Comparison{first}
	for {
		s.skipSpace()
		if !s.consumePrefix("&&") {
			break
		}
		s.skipSpace()
		next, err := parseComparison(s)
		if err != nil {
			return ast.And{}, err
		}
		cmps = append(cmps, next)
	}
	return ast.And{Comparisons: cmps}, nil
}

var comparisonOps = []struct {
	sym string
	op  ast.ComparisonOp
}{
	{"==", ast.CmpEqual},
	{"!=", ast.CmpNotEqual},
	{">=", ast.CmpGreaterEqual},
	{"<=", ast.CmpLessEqual},
	{">", ast.CmpGreater},
	{"<", ast.CmpLess},
}

func parseComparison(s *scanner) (ast.Comparison, error) {
	left, err := parseAddSub(s)
	if err != nil {
		return ast.Comparison{}, err
	}
	s.skipSpace()
	for _, c := range comparisonOps {
		if c.op == ast.CmpGreater && s.hasPrefix(">}") {
			continue
		}
		if s.consumePrefix(c.sym) {
			s.skipSpace()
			right, err := parseAddSub(s)
			if err != nil {
				return ast.Comparison{}, err
			}
			return ast.Comparison{Left: left, Op: c.op, Right: right}, nil
		}
	}
	return ast.Comparison{Left: left, Op: ast.CmpNone}, nil
}

func parseAddSub(s *scanner) (ast.AddSub, error) {
	left, err := parseMulDiv(s)
	if err != nil {
		return ast.AddSub{}, err
	}
	var rest []ast.AddSubTail
	for {
		s.skipSpace()
		var op ast.AddSubOp
		switch {
		case s.consumePrefix("+"):
			op = ast.OpAdd
		case s.hasPrefix("-") && !s.hasPrefix("-}"):
			s.pos++
			op = ast.OpSubtract
		default:
			return ast.AddSub{Left: left, Rest: rest}, nil
		}
		s.skipSpace()
		val, err := parseMulDiv(s)
		if err != nil {
			return ast.AddSub{}, err
		}
		rest = append(rest, ast.AddSubTail{Op: op, Value: val})
	}
}

func parseMulDiv(s *scanner) (ast.MulDiv, error) {
	left, err := parseUnary(s)
	if err != nil {
		return ast.MulDiv{}, err
	}
	var rest []ast.MulDivTail
	for {
		s.skipSpace()
		var op ast.MulDivOp
		switch {
		case s.consumePrefix("*"):
			op = ast.OpMultiply
		case s.hasPrefix("/") && !s.hasPrefix("/>}"):
			s.pos++
			op = ast.OpDivide
		case s.consumePrefix("%"):
			op = ast.OpModulo
		default:
			return ast.MulDiv{Left: left, Rest: rest}, nil
		}
		s.skipSpace()
		val, err := parseUnary(s)
		if err != nil {
			return ast.MulDiv{}, err
		}
		rest = append(rest, ast.MulDivTail{Op: op, Value: val})
	}
}

func parseUnary(s *scanner) (ast.Unary, error) {
	var ops []ast.UnaryOp
	for {
		s.skipSpace()
		switch {
		case s.consumePrefix("!"):
			ops = append(ops, ast.UnaryNot)
		case s.consumePrefix("+"):
			ops = append(ops, ast.UnaryPositive)
		case s.consumePrefix("-"):
			ops = append(ops, ast.UnaryNegative)
		default:
			primary, err := parsePrimary(s)
			if err != nil {
				return ast.Unary{}, err
			}
			return ast.Unary{Ops: ops, Primary: primary}, nil
		}
	}
}

func parsePrimary(s *scanner) (ast.Primary, error) {
	s.skipSpace()
	if s.eof() {
		return ast.Primary{}, errUnexpectedEOF(s.pos, "expression")
	}

	switch {
	case s.consumePrefix("("):
		inner, err := parseExpression(s)
		if err != nil {
			return ast.Primary{}, err
		}
		s.skipSpace()
		if !s.consumePrefix(")") {
			return ast.Primary{}, errUnexpected(s.pos, "')'")
		}
		return ast.Primary{Kind: ast.PrimaryParen, Paren: &inner}, nil

	case s.hasPrefix("."):
		field, err := parseFieldParts(s, ast.Field{HasTopLevel: false})
		if err != nil {
			return ast.Primary{}, err
		}
		return ast.Primary{Kind: ast.PrimaryField, Field: field}, nil

	case s.hasPrefix("$"):
		s.pos++
		name := s.readIdentifier()
		top := ast.TopLevel{Kind: ast.TopVariable, Name: name}
		return parseTopLevelOrField(s, top)

	case matchesKeyword(s, "this"):
		s.pos += len("this")
		return parseTopLevelOrField(s, ast.TopLevel{Kind: ast.TopThis})

	case matchesKeyword(s, "site"):
		s.pos += len("site")
		return parseTopLevelOrField(s, ast.TopLevel{Kind: ast.TopSite})

	case matchesKeyword(s, "param"):
		s.pos += len("param")
		return parseTopLevelOrField(s, ast.TopLevel{Kind: ast.TopParam})

	case matchesKeyword(s, "true"):
		s.pos += len("true")
		return ast.Primary{Kind: ast.PrimaryBool, Bool: true}, nil

	case matchesKeyword(s, "false"):
		s.pos += len("false")
		return ast.Primary{Kind: ast.PrimaryBool, Bool: false}, nil

	case matchesKeyword(s, "null"):
		s.pos += len("null")
		return ast.Primary{Kind: ast.PrimaryNull}, nil

	case s.hasPrefix(`"`):
		str, err := parseStringLiteral(s)
		if err != nil {
			return ast.Primary{}, err
		}
		return ast.Primary{Kind: ast.PrimaryString, Str: str}, nil

	default:
		return parseNumber(s)
	}
}

// matchesKeyword reports whether kw occurs at s's current position as a
// whole identifier (not a prefix of a longer identifier).
func matchesKeyword(s *scanner, kw string) bool {
	if !s.hasPrefix(kw) {
		return false
	}
	after := s.pos + len(kw)
	if after < len(s.src) && identByte(s.src[after]) {
		return false
	}
	return true
}

// parseTopLevelOrField consumes a '.' or '[' path following a bare
// top-level reference; if none follows, the reference stands alone.
func parseTopLevelOrField(s *scanner, top ast.TopLevel) (ast.Primary, error) {
	if s.hasPrefix(".") || s.hasPrefix("[") {
		field, err := parseFieldParts(s, ast.Field{HasTopLevel: true, TopLevel: top})
		if err != nil {
			return ast.Primary{}, err
		}
		return ast.Primary{Kind: ast.PrimaryField, Field: field}, nil
	}
	return ast.Primary{Kind: ast.PrimaryTopLevel, Top: top}, nil
}

// parseFieldParts consumes a chain of ".name" / "[index]" steps into
// base, requiring at least one step (callers only reach here once a
// leading '.' or '[' has already been observed).
func parseFieldParts(s *scanner, base ast.Field) (ast.Field, error) {
	for {
		switch {
		case s.consumePrefix("."):
			name := s.readIdentifier()
			if name == "" {
				return ast.Field{}, errUnexpected(s.pos, "field name")
			}
			base.Parts = append(base.Parts, ast.FieldPart{Kind: ast.FieldName, Name: name})
		case s.consumePrefix("["):
			digits := s.readWhile(isDigit)
			if digits == "" {
				return ast.Field{}, errUnexpected(s.pos, "index")
			}
			if !s.consumePrefix("]") {
				return ast.Field{}, errUnexpected(s.pos, "']'")
			}
			n, err := strconv.Atoi(digits)
			if err != nil {
				return ast.Field{}, errInvalidNumber(digits, s.pos)
			}
			base.Parts = append(base.Parts, ast.FieldPart{Kind: ast.FieldIndex, Index: n})
		default:
			return base, nil
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func parseNumber(s *scanner) (ast.Primary, error) {
	start := s.pos
	digits := s.readWhile(isDigit)
	if digits == "" {
		return ast.Primary{}, errUnexpected(s.pos, "expression")
	}
	if s.hasPrefix(".") && len(s.rest()) > 1 && isDigit(s.rest()[1]) {
		s.pos++ // consume '.'
		frac := s.readWhile(isDigit)
		text := s.src[start:s.pos]
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return ast.Primary{}, errInvalidNumber(text, start)
		}
		_ = frac
		return ast.Primary{Kind: ast.PrimaryFloat, Float: f}, nil
	}
	i, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return ast.Primary{}, errInvalidNumber(digits, start)
	}
	return ast.Primary{Kind: ast.PrimaryInt, Int: i}, nil
}

// parseStringLiteral parses a double-quoted string with backslash
// escapes for \" \\ \n \t.
func parseStringLiteral(s *scanner) (string, error) {
	start := s.pos
	if !s.consumePrefix(`"`) {
		return "", errUnexpected(s.pos, "string literal")
	}
	var b strings.Builder
	for {
		if s.eof() {
			return "", errUnterminated(start, "string literal")
		}
		c := s.src[s.pos]
		if c == '"' {
			s.pos++
			return b.String(), nil
		}
		if c == '\\' && s.pos+1 < len(s.src) {
			s.pos++
			switch s.src[s.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(s.src[s.pos])
			}
			s.pos++
			continue
		}
		b.WriteByte(c)
		s.pos++
	}
}
