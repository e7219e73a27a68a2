package channel_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Aquillum/LiteClaw/internal/channel"
)

func TestBotRegistryResolveEmpty(t *testing.T) {
	t.Parallel()

	reg := channel.NewBotRegistry()
	if !reg.IsEmpty(channel.PlatformTelegram) {
		t.Fatal("new registry should be empty")
	}
	_, _, err := reg.Resolve(channel.PlatformTelegram, "555")
	var notInit *channel.NotInitializedError
	if !errors.As(err, &notInit) {
		t.Fatalf("Resolve on empty registry = %v, want NotInitializedError", err)
	}
	if notInit.Platform != channel.PlatformTelegram {
		t.Fatalf("unexpected platform %q", notInit.Platform)
	}
}

func TestBotRegistryMultiBotScenario(t *testing.T) {
	t.Parallel()

	reg := channel.NewBotRegistry()
	isDefault, err := reg.Register(channel.PlatformTelegram, "alpha", "handle-alpha")
	if err != nil || !isDefault {
		t.Fatalf("first Register = (%v, %v), want default", isDefault, err)
	}
	isDefault, err = reg.Register(channel.PlatformTelegram, "beta", "handle-beta")
	if err != nil || isDefault {
		t.Fatalf("second Register = (%v, %v), want non-default", isDefault, err)
	}

	key := channel.EncodeSessionKey("beta", "555", reg.Len(channel.PlatformTelegram) > 1)
	if key != "beta:555" {
		t.Fatalf("session key = %q, want beta:555", key)
	}
	bot, native, err := reg.Resolve(channel.PlatformTelegram, key)
	if err != nil || bot.Handle != "handle-beta" || native != "555" {
		t.Fatalf("Resolve(beta:555) = (%+v, %q, %v)", bot, native, err)
	}
	bot, native, err = reg.Resolve(channel.PlatformTelegram, "555")
	if err != nil || bot.Identity != "alpha" || !bot.Default || native != "555" {
		t.Fatalf("Resolve(555) = (%+v, %q, %v), want default alpha", bot, native, err)
	}
	bot, native, err = reg.Resolve(channel.PlatformTelegram, "gamma:555")
	if err != nil || bot.Identity != "alpha" || native != "gamma:555" {
		t.Fatalf("unknown prefix must fall back to default, got (%+v, %q, %v)", bot, native, err)
	}
	if got := reg.Identities(channel.PlatformTelegram); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("Identities = %v", got)
	}
}

func TestBotRegistryRejects(t *testing.T) {
	t.Parallel()

	reg := channel.NewBotRegistry()
	if _, err := reg.Register(channel.PlatformTelegram, "42bot", nil); !errors.Is(err, channel.ErrInvalidIdentity) {
		t.Fatalf("numeric identity error = %v", err)
	}
	if _, err := reg.Register(channel.PlatformTelegram, "alpha", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(channel.PlatformTelegram, "alpha", nil); !errors.Is(err, channel.ErrDuplicateBot) {
		t.Fatalf("duplicate identity error = %v", err)
	}
	if !reg.IsEmpty(channel.PlatformSlack) {
		t.Fatal("platforms must not share entries")
	}
}

func TestBotRegistryConcurrentDefault(t *testing.T) {
	t.Parallel()

	reg := channel.NewBotRegistry()
	var (
		wg       sync.WaitGroup
		defaults atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			isDefault, err := reg.Register(channel.PlatformTelegram, fmt.Sprintf("bot%d", i), i)
			if err != nil {
				t.Errorf("Register: %v", err)
				return
			}
			if isDefault {
				defaults.Add(1)
			}
			if _, _, err := reg.Resolve(channel.PlatformTelegram, "1"); err != nil {
				t.Errorf("Resolve after register: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if got := defaults.Load(); got != 1 {
		t.Fatalf("%d bots claimed default, want exactly 1", got)
	}
	def, ok := reg.Default(channel.PlatformTelegram)
	if !ok || def.Identity != reg.Identities(channel.PlatformTelegram)[0] {
		t.Fatalf("default %+v is not the first registration", def)
	}
}
