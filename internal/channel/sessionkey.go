package channel

import "strings"

const sessionKeySep = ":"

// ValidIdentity reports whether name can be used as a bot identity prefix.
// Identities never start with a digit or sign, so numeric chat ids (including
// negative group ids) cannot be mistaken for a prefix.
func ValidIdentity(name string) bool {
	if name == "" || strings.Contains(name, sessionKeySep) {
		return false
	}
	switch c := name[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+':
		return false
	}
	return true
}

// EncodeSessionKey builds the backend-facing key for a chat seen by identity.
// The identity prefix is only added when several bots share the platform.
func EncodeSessionKey(identity, chatID string, multi bool) string {
	if !multi || !ValidIdentity(identity) {
		return chatID
	}
	return identity + sessionKeySep + chatID
}

// SplitSessionKey separates an identity prefix from the native chat id. The
// prefix is honored only if known accepts it; otherwise the whole key is the
// native id and identity is empty.
func SplitSessionKey(key string, known func(identity string) bool) (identity, nativeID string) {
	prefix, rest, found := strings.Cut(key, sessionKeySep)
	if !found || !ValidIdentity(prefix) || known == nil || !known(prefix) {
		return "", key
	}
	return prefix, rest
}
