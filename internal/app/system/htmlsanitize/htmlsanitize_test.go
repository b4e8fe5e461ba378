package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/groupwork/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"safe markup", "<p><strong>Bold</strong> and <em>italic</em></p>", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"script", "<p>Hello</p><script>alert(1)</script>", "<p>Hello</p>"},
		{"list", "<ul><li>Item 1</li><li>Item 2</li></ul>", "<ul><li>Item 1</li><li>Item 2</li></ul>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_StripsDangerousAttributes(t *testing.T) {
	tests := []struct {
		input  string
		banned string
	}{
		{`<a href="javascript:alert(1)">Click</a>`, "javascript:"},
		{`<img src="x" onerror="alert(1)">`, "onerror"},
		{`<p>Content</p><iframe src="https://evil.com"></iframe>`, "iframe"},
		{`<form action="/submit"><input type="text"></form>`, "<form"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.Sanitize(tt.input); strings.Contains(got, tt.banned) {
			t.Errorf("Sanitize(%q) = %q, still contains %q", tt.input, got, tt.banned)
		}
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://example.com">Link</a>`)
	if !strings.Contains(got, "https://example.com") {
		t.Errorf("expected link preserved, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAnswer(t *testing.T) {
	if got := htmlsanitize.Answer("It's 5 < 10 & fine"); got != "It's 5 < 10 & fine" {
		t.Errorf("plain answer changed: %q", got)
	}
	if got := htmlsanitize.Answer("<b>ok</b><script>x()</script>"); got != "<b>ok</b>" {
		t.Errorf("got %q, want %q", got, "<b>ok</b>")
	}
}
