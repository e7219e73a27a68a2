package channel

import (
	"fmt"
	"sync"
)

// Bot is one authenticated credential on a platform.
type Bot struct {
	Identity string
	Handle   any
	Default  bool
}

type botSet struct {
	byIdentity map[string]*Bot
	order      []string
	defaultID  string
}

// BotRegistry holds the live bots per platform. The first registration on a
// platform becomes its default for the lifetime of the registry.
type BotRegistry struct {
	mu   sync.RWMutex
	bots map[Platform]*botSet
}

// NewBotRegistry creates an empty BotRegistry.
func NewBotRegistry() *BotRegistry {
	return &BotRegistry{bots: map[Platform]*botSet{}}
}

// Register adds a bot and reports whether it was elected default.
func (r *BotRegistry) Register(platform Platform, identity string, handle any) (bool, error) {
	if !ValidIdentity(identity) {
		return false, fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.bots[platform]
	if !ok {
		set = &botSet{byIdentity: map[string]*Bot{}}
		r.bots[platform] = set
	}
	if _, exists := set.byIdentity[identity]; exists {
		return false, fmt.Errorf("%w: %s/%s", ErrDuplicateBot, platform, identity)
	}
	bot := &Bot{Identity: identity, Handle: handle}
	if set.defaultID == "" {
		set.defaultID = identity
		bot.Default = true
	}
	set.byIdentity[identity] = bot
	set.order = append(set.order, identity)
	return bot.Default, nil
}

// Resolve finds the bot owning sessionKey and returns it with the native chat id.
// Keys without a registered identity prefix go to the default bot.
func (r *BotRegistry) Resolve(platform Platform, sessionKey string) (Bot, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.bots[platform]
	if !ok || set.defaultID == "" {
		return Bot{}, "", &NotInitializedError{Platform: platform}
	}
	identity, nativeID := SplitSessionKey(sessionKey, func(id string) bool {
		_, known := set.byIdentity[id]
		return known
	})
	if identity == "" {
		identity = set.defaultID
	}
	return *set.byIdentity[identity], nativeID, nil
}

// IsEmpty reports whether no bot has registered for platform yet.
func (r *BotRegistry) IsEmpty(platform Platform) bool {
	return r.Len(platform) == 0
}

// Len returns the number of registered bots for platform.
func (r *BotRegistry) Len(platform Platform) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if set, ok := r.bots[platform]; ok {
		return len(set.order)
	}
	return 0
}

// Default returns the default bot of platform.
func (r *BotRegistry) Default(platform Platform) (Bot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.bots[platform]
	if !ok || set.defaultID == "" {
		return Bot{}, false
	}
	return *set.byIdentity[set.defaultID], true
}

// Identities lists registered identities in registration order.
func (r *BotRegistry) Identities(platform Platform) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.bots[platform]
	if !ok {
		return nil
	}
	return append([]string(nil), set.order...)
}
