package sanitize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"rupee and smart quotes", "₹100 ‘test’", "Rs.100 'test'"},
		{"currencies", "€5 £6 ¥7", "EUR5 GBP6 JPY7"},
		{"double quotes", "“hi”", `"hi"`},
		{"nbsp", "a\u00a0b", "a b"},
		{"control chars", "a\x00b\x07c\x0Bd\x0Ce\x1Ff\x7Fg", "abcdefg"},
		{"keeps whitespace", "line1\nline2\r\n\tend", "line1\nline2\r\n\tend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Text(tt.in); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"₹€£¥",
		"‘’“”",
		"\x01\x02mixed \u20b9\u00a0\u00a0\u201cq\u201d \x7F",
		"Rs. EUR GBP JPY",
		strings.Repeat("₹\x00", 32),
	}
	for _, in := range inputs {
		once := Text(in)
		if twice := Text(once); twice != once {
			t.Fatalf("Text not idempotent for %q: %q then %q", in, once, twice)
		}
		for _, r := range once {
			if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7F {
				t.Fatalf("control rune %U survived in %q", r, once)
			}
		}
	}
}
