package channel_test

import (
	"testing"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

func TestValidIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"alpha_bot", true},
		{"Beta", true},
		{"", false},
		{"555", false},
		{"-100123", false},
		{"+44", false},
		{"a:b", false},
	}
	for _, tt := range tests {
		if got := channel.ValidIdentity(tt.name); got != tt.want {
			t.Fatalf("ValidIdentity(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSessionKeyRoundTrip(t *testing.T) {
	t.Parallel()

	known := func(id string) bool { return id == "alpha" || id == "beta" }
	for _, identity := range []string{"alpha", "beta"} {
		for _, chatID := range []string{"555", "-100987", "@news"} {
			key := channel.EncodeSessionKey(identity, chatID, true)
			gotID, gotChat := channel.SplitSessionKey(key, known)
			if gotID != identity || gotChat != chatID {
				t.Fatalf("round trip %q/%q via %q = %q/%q", identity, chatID, key, gotID, gotChat)
			}
		}
	}
}

func TestEncodeSessionKeySingleBot(t *testing.T) {
	t.Parallel()

	if got := channel.EncodeSessionKey("alpha", "555", false); got != "555" {
		t.Fatalf("single bot key = %q, want bare chat id", got)
	}
	if got := channel.EncodeSessionKey("123", "555", true); got != "555" {
		t.Fatalf("invalid identity must not prefix, got %q", got)
	}
}

func TestSplitSessionKeyFallbacks(t *testing.T) {
	t.Parallel()

	known := func(id string) bool { return id == "alpha" }
	tests := []struct {
		key      string
		identity string
		native   string
	}{
		{"555", "", "555"},
		{"gamma:555", "", "gamma:555"},
		{"alpha:555:extra", "alpha", "555:extra"},
		{"-100:5", "", "-100:5"},
	}
	for _, tt := range tests {
		id, native := channel.SplitSessionKey(tt.key, known)
		if id != tt.identity || native != tt.native {
			t.Fatalf("SplitSessionKey(%q) = %q/%q, want %q/%q", tt.key, id, native, tt.identity, tt.native)
		}
	}
	if id, native := channel.SplitSessionKey("alpha:1", nil); id != "" || native != "alpha:1" {
		t.Fatalf("nil lookup must not accept prefix, got %q/%q", id, native)
	}
}
