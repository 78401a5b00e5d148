package markup

import "testing"

func TestForExtMarkdown(t *testing.T) {
	c, ok := ForExt("md")
	if !ok {
		t.Fatalf("expected a markdown converter to be registered")
	}
	out, err := c.Convert("# Title\n\n**bold** text")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty HTML output")
	}
}

func TestForExtUnknown(t *testing.T) {
	if _, ok := ForExt("html"); ok {
		t.Fatalf("expected no converter registered for a pass-through extension")
	}
	if _, ok := ForExt("org"); ok {
		t.Fatalf("expected no converter registered for org — original_source's TemplateKind has no org variant")
	}
}

func TestMarkdownFencedCodeHighlighting(t *testing.T) {
	c, _ := ForExt("md")
	out, err := c.Convert("```go\nfunc main() {}\n```")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out == "" {
		t.Fatalf("expected highlighted code block output")
	}
}
