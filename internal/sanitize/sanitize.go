// Package sanitize rewrites outbound text into a form every transport accepts.
package sanitize

import "strings"

var replacer = strings.NewReplacer(
	"\u20b9", "Rs.",
	"\u20ac", "EUR",
	"\u00a3", "GBP",
	"\u00a5", "JPY",
	"\u00a0", " ",
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
)

// Text replaces currency glyphs, non-breaking spaces and smart quotes with ASCII
// equivalents and strips C0 control characters (except tab, LF and CR) and DEL.
func Text(text string) string {
	if text == "" {
		return ""
	}
	return strings.Map(dropControl, replacer.Replace(text))
}

func dropControl(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r < 0x20 || r == 0x7F:
		return -1
	default:
		return r
	}
}
