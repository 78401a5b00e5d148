package lang

import (
	"testing"

	"allay/internal/lang/ast"
)

func TestParseFileTextOnly(t *testing.T) {
	f, err := ParseFile("just plain text, no controls")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if f.HasMeta {
		t.Fatalf("expected no front matter")
	}
	if len(f.Template.Controls) != 1 || f.Template.Controls[0].Kind != ast.ControlText {
		t.Fatalf("expected a single text control, got %+v", f.Template.Controls)
	}
}

func TestParseFileFrontMatter(t *testing.T) {
	tests := []struct {
		name   string
		source string
		format ast.MetaFormat
		raw    string
	}{
		{
			name:   "yaml",
			source: "---\ntitle: Hi\n---\nbody",
			format: ast.MetaYAML,
			raw:    "title: Hi",
		},
		{
			name:   "toml",
			source: "+++\ntitle = \"Hi\"\n+++\nbody",
			format: ast.MetaTOML,
			raw:    "title = \"Hi\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFile(tt.source)
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}
			if !f.HasMeta {
				t.Fatalf("expected front matter")
			}
			if f.MetaFormat != tt.format {
				t.Fatalf("format = %v, want %v", f.MetaFormat, tt.format)
			}
			if f.MetaRaw != tt.raw {
				t.Fatalf("raw = %q, want %q", f.MetaRaw, tt.raw)
			}
		})
	}
}

func TestParseFileStripsComments(t *testing.T) {
	f, err := ParseFile("a<!-- secret -->b")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Template.Controls) != 1 || f.Template.Controls[0].Text != "ab" {
		t.Fatalf("expected comment-stripped text 'ab', got %+v", f.Template.Controls)
	}
}

func TestParseSetAndSubstitution(t *testing.T) {
	f, err := ParseFile("{- set $var = 10 -} {: $var :}")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	ctrls := f.Template.Controls
	if len(ctrls) < 3 {
		t.Fatalf("expected at least 3 controls, got %d: %+v", len(ctrls), ctrls)
	}
	if ctrls[0].Kind != ast.ControlCommand || ctrls[0].Command.Kind != ast.CommandSet {
		t.Fatalf("expected first control to be a set command, got %+v", ctrls[0])
	}
	if ctrls[0].Command.Set.Name != "var" {
		t.Fatalf("set name = %q, want %q", ctrls[0].Command.Set.Name, "var")
	}
	lit := ctrls[0].Command.Set.Value.Or.Ands[0].Comparisons[0].Left.Left.Left.Primary
	if lit.Kind != ast.PrimaryInt || lit.Int != 10 {
		t.Fatalf("set value = %+v, want int 10", lit)
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	f, err := ParseFile("{- set $sum = 5+--(-6)*10 -}")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	addsub := f.Template.Controls[0].Command.Set.Value.Or.Ands[0].Comparisons[0].Left
	if addsub.Left.Left.Primary.Kind != ast.PrimaryInt || addsub.Left.Left.Primary.Int != 5 {
		t.Fatalf("left operand = %+v, want int 5", addsub.Left.Left.Primary)
	}
	if len(addsub.Rest) != 1 || addsub.Rest[0].Op != ast.OpAdd {
		t.Fatalf("expected one '+' tail, got %+v", addsub.Rest)
	}
	muldiv := addsub.Rest[0].Value
	if len(muldiv.Left.Ops) != 2 {
		t.Fatalf("expected two leading unary minuses, got %+v", muldiv.Left.Ops)
	}
	if muldiv.Left.Primary.Kind != ast.PrimaryParen {
		t.Fatalf("expected parenthesized primary, got %+v", muldiv.Left.Primary)
	}
	if len(muldiv.Rest) != 1 || muldiv.Rest[0].Op != ast.OpMultiply {
		t.Fatalf("expected one '*' tail, got %+v", muldiv.Rest)
	}
}

func TestParseIfElse(t *testing.T) {
	src := `{- set $a = 10 -}{- set $b = 20 -}{: ($a + $b) % 7 :}{- if $a == $b -}Equal{- else -}NotEq{- end -}`
	f, err := ParseFile(src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	var ifCmd *ast.IfCommand
	for _, c := range f.Template.Controls {
		if c.Kind == ast.ControlCommand && c.Command.Kind == ast.CommandIf {
			ifCmd = c.Command.If
		}
	}
	if ifCmd == nil {
		t.Fatalf("expected an if command among %+v", f.Template.Controls)
	}
	if !ifCmd.HasElse {
		t.Fatalf("expected an else branch")
	}
	if ifCmd.Condition.Or.Ands[0].Comparisons[0].Op != ast.CmpEqual {
		t.Fatalf("expected '==' comparison, got %+v", ifCmd.Condition.Or.Ands[0].Comparisons[0])
	}
	if len(ifCmd.Inner.Controls) != 1 || ifCmd.Inner.Controls[0].Text != "Equal" {
		t.Fatalf("if branch = %+v, want 'Equal'", ifCmd.Inner.Controls)
	}
	if len(ifCmd.Else.Controls) != 1 || ifCmd.Else.Controls[0].Text != "NotEq" {
		t.Fatalf("else branch = %+v, want 'NotEq'", ifCmd.Else.Controls)
	}
}

func TestParseBlockShortcode(t *testing.T) {
	f, err := ParseFile("{< my >}Hi{</ my >}")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	sc := f.Template.Controls[0]
	if sc.Kind != ast.ControlShortcode || sc.Shortcode.Kind != ast.ShortcodeBlock {
		t.Fatalf("expected a block shortcode, got %+v", sc)
	}
	if sc.Shortcode.Name != "my" {
		t.Fatalf("name = %q, want %q", sc.Shortcode.Name, "my")
	}
	if len(sc.Shortcode.Inner.Controls) != 1 || sc.Shortcode.Inner.Controls[0].Text != "Hi" {
		t.Fatalf("inner = %+v, want 'Hi'", sc.Shortcode.Inner.Controls)
	}
}

func TestParseShortcodeMismatchError(t *testing.T) {
	_, err := ParseFile("{< my >}Hi{</ other >}")
	if err == nil {
		t.Fatalf("expected ShortcodeMismatch error")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrShortcodeMismatch {
		t.Fatalf("expected ParseError{Kind: ErrShortcodeMismatch}, got %v", err)
	}
}

func TestParseSingleShortcodeWithParams(t *testing.T) {
	f, err := ParseFile(`{< gallery $images, "caption" />}`)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	sc := f.Template.Controls[0].Shortcode
	if sc.Kind != ast.ShortcodeSingle {
		t.Fatalf("expected a single shortcode")
	}
	if len(sc.Params) != 2 {
		t.Fatalf("expected 2 params, got %d: %+v", len(sc.Params), sc.Params)
	}
}

func TestParseFieldAccessAndMagicField(t *testing.T) {
	f, err := ParseFile("{: this.title :}{: .inner :}{: site.pages[0].url :}")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	ctrls := f.Template.Controls

	field0 := ctrls[0].Substitution.Expr.Or.Ands[0].Comparisons[0].Left.Left.Left.Primary.Field
	if !field0.HasTopLevel || field0.TopLevel.Kind != ast.TopThis {
		t.Fatalf("expected 'this' top level, got %+v", field0)
	}

	field1 := ctrls[1].Substitution.Expr.Or.Ands[0].Comparisons[0].Left.Left.Left.Primary.Field
	if field1.HasTopLevel {
		t.Fatalf("expected magic field with no explicit top level, got %+v", field1)
	}
	if len(field1.Parts) != 1 || field1.Parts[0].Name != "inner" {
		t.Fatalf("expected single Name(inner) part, got %+v", field1.Parts)
	}

	field2 := ctrls[2].Substitution.Expr.Or.Ands[0].Comparisons[0].Left.Left.Left.Primary.Field
	if !field2.HasTopLevel || field2.TopLevel.Kind != ast.TopSite {
		t.Fatalf("expected 'site' top level, got %+v", field2)
	}
	if len(field2.Parts) != 3 || field2.Parts[0].Kind != ast.FieldName || field2.Parts[1].Kind != ast.FieldIndex || field2.Parts[2].Kind != ast.FieldName {
		t.Fatalf("expected Name(pages), Index(0), Name(url), got %+v", field2.Parts)
	}
}

func TestParseForCommand(t *testing.T) {
	f, err := ParseFile(`{- for $item, $i : this.items -}{: $item :}{- end -}`)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	forCmd := f.Template.Controls[0].Command.For
	if forCmd.ItemName != "item" || !forCmd.HasIndex || forCmd.IndexName != "i" {
		t.Fatalf("for command = %+v", forCmd)
	}
}

func TestParseIncludeCommand(t *testing.T) {
	f, err := ParseFile(`{- include "partial.md", this.scope -}`)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	inc := f.Template.Controls[0].Command.Include
	if inc.Path != "partial.md" {
		t.Fatalf("path = %q, want %q", inc.Path, "partial.md")
	}
	if len(inc.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(inc.Params))
	}
}

func TestMatchMetaOnly(t *testing.T) {
	raw, format, ok := MatchMetaOnly("---\nfoo: bar\n---\nbody text")
	if !ok {
		t.Fatalf("expected a metadata match")
	}
	if format != ast.MetaYAML || raw != "foo: bar" {
		t.Fatalf("got raw=%q format=%v", raw, format)
	}
}

func TestMatchRawStripsComments(t *testing.T) {
	if got := MatchRaw("a<!--x-->b"); got != "ab" {
		t.Fatalf("MatchRaw = %q, want %q", got, "ab")
	}
}
