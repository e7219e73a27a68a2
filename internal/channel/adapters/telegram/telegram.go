package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
	"github.com/Aquillum/LiteClaw/internal/sanitize"
)

const (
	DefaultRatePerSecond = 25
	DefaultPollTimeout   = 10 * time.Second

	defaultSenderName = "Telegram User"
)

// Options configures the Telegram adapter. Every token is a separate bot.
type Options struct {
	Tokens        []string
	APIEndpoint   string
	HTTPClient    tgbotapi.HTTPClient
	RatePerSecond float64
	PollTimeout   time.Duration
}

type telegramBot struct {
	identity string
	api      *tgbotapi.BotAPI
	limiter  *rate.Limiter
	stopOnce sync.Once
}

func (b *telegramBot) stop() {
	b.stopOnce.Do(b.api.StopReceivingUpdates)
}

type TelegramAdapter struct {
	logger   *slog.Logger
	opts     Options
	bots     *channel.BotRegistry
	observer channel.BotObserver
}

var setLoggerOnce sync.Once

func NewTelegramAdapter(log *slog.Logger, bots *channel.BotRegistry, observer channel.BotObserver, opts Options) *TelegramAdapter {
	if log == nil {
		log = slog.Default()
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = DefaultRatePerSecond
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if bots == nil {
		bots = channel.NewBotRegistry()
	}
	logger := log.With(slog.String("adapter", "telegram"))
	setLoggerOnce.Do(func() {
		_ = tgbotapi.SetLogger(&slogBotLogger{log: logger})
	})
	return &TelegramAdapter{
		logger:   logger,
		opts:     opts,
		bots:     bots,
		observer: observer,
	}
}

func (a *TelegramAdapter) Platform() channel.Platform {
	return channel.PlatformTelegram
}

// Connect authenticates every token concurrently and starts one polling loop per
// bot. A token that fails to authenticate is logged and skipped.
func (a *TelegramAdapter) Connect(ctx context.Context, emitter channel.Emitter) (channel.Connection, error) {
	tokens := cleanTokens(a.opts.Tokens)
	if len(tokens) == 0 {
		return nil, errors.New("telegram bot token is required")
	}
	multi := len(tokens) > 1
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(index int, token string) {
			defer wg.Done()
			bot, err := a.authenticate(token)
			if err != nil {
				a.logger.Error("create bot failed", slog.Int("token_index", index), slog.Any("error", err))
				return
			}
			a.poll(connCtx, bot, multi, emitter)
		}(i, token)
	}
	stop := func(stopCtx context.Context) error {
		cancel()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
	return channel.NewConnection(a.Platform(), stop), nil
}

func (a *TelegramAdapter) authenticate(token string) (*telegramBot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, a.opts.APIEndpoint, a.opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot := &telegramBot{
		identity: strings.TrimSpace(api.Self.UserName),
		api:      api,
		limiter:  rate.NewLimiter(rate.Limit(a.opts.RatePerSecond), 1),
	}
	isDefault, err := a.bots.Register(channel.PlatformTelegram, bot.identity, bot)
	if err != nil {
		return nil, err
	}
	if a.observer != nil {
		a.observer.SetBots(channel.PlatformTelegram, a.bots.Len(channel.PlatformTelegram))
	}
	a.logger.Info("bot registered", slog.String("identity", bot.identity), slog.Bool("default", isDefault))
	return bot, nil
}

func (a *TelegramAdapter) poll(ctx context.Context, bot *telegramBot, multi bool, emitter channel.Emitter) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = int(a.opts.PollTimeout / time.Second)
	updates := bot.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stop", slog.String("identity", bot.identity))
			bot.stop()
			return
		case update, ok := <-updates:
			if !ok {
				a.logger.Info("updates channel closed", slog.String("identity", bot.identity))
				return
			}
			env, ok := normalizeMessage(bot.identity, multi, update.Message)
			if !ok {
				continue
			}
			emitter.Emit(ctx, env)
		}
	}
}

// normalizeMessage converts a Telegram message into an envelope. Messages
// without text are ignored.
func normalizeMessage(identity string, multi bool, msg *tgbotapi.Message) (channel.Envelope, bool) {
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return channel.Envelope{}, false
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	return channel.Envelope{
		Platform:   channel.PlatformTelegram,
		MessageID:  strconv.Itoa(msg.MessageID),
		SessionKey: channel.EncodeSessionKey(identity, chatID, multi),
		Body:       msg.Text,
		Timestamp:  float64(msg.Date),
		SenderName: resolveSenderName(msg.From),
		FromMe:     false,
	}, true
}

func resolveSenderName(user *tgbotapi.User) string {
	if user == nil {
		return defaultSenderName
	}
	if name := strings.TrimSpace(user.FirstName); name != "" {
		return name
	}
	return defaultSenderName
}

func (a *TelegramAdapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	bot, target, err := a.resolve(req.To)
	if err != nil {
		return channel.SendResult{}, err
	}
	if err := bot.limiter.Wait(ctx); err != nil {
		return channel.SendResult{}, err
	}
	var sent tgbotapi.Message
	if req.IsMedia {
		sent, err = sendTelegramMedia(bot.api, target, req)
	} else {
		sent, err = sendTelegramText(bot.api, target, sanitize.Text(req.Message))
	}
	if err != nil {
		return channel.SendResult{}, err
	}
	a.logger.Info("sent",
		slog.String("identity", bot.identity),
		slog.String("to", req.To),
		slog.Bool("media", req.IsMedia),
		slog.String("text", adapterutil.SummarizeText(req.Message)),
	)
	return channel.SendResult{ID: strconv.Itoa(sent.MessageID)}, nil
}

func (a *TelegramAdapter) StartTyping(ctx context.Context, to string) error {
	bot, target, err := a.resolve(to)
	if err != nil {
		return err
	}
	if err := bot.limiter.Wait(ctx); err != nil {
		return err
	}
	action := tgbotapi.NewChatAction(target.chatID, tgbotapi.ChatTyping)
	action.ChannelUsername = target.username
	_, err = bot.api.Request(action)
	return err
}

// StopTyping is a no-op: Telegram clears the indicator on the next message.
func (a *TelegramAdapter) StopTyping(_ context.Context, _ string) error {
	return nil
}

func (a *TelegramAdapter) Status() map[string]any {
	status := map[string]any{
		"enabled": true,
		"bots":    a.bots.Identities(channel.PlatformTelegram),
	}
	if bot, ok := a.bots.Default(channel.PlatformTelegram); ok {
		status["default"] = bot.Identity
	}
	return status
}

func (a *TelegramAdapter) resolve(to string) (*telegramBot, chatTarget, error) {
	entry, nativeID, err := a.bots.Resolve(channel.PlatformTelegram, to)
	if err != nil {
		return nil, chatTarget{}, err
	}
	bot, ok := entry.Handle.(*telegramBot)
	if !ok {
		return nil, chatTarget{}, fmt.Errorf("telegram bot %s has unexpected handle %T", entry.Identity, entry.Handle)
	}
	target, err := parseTarget(nativeID)
	if err != nil {
		return nil, chatTarget{}, err
	}
	return bot, target, nil
}

type chatTarget struct {
	chatID   int64
	username string
}

func parseTarget(raw string) (chatTarget, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") {
		return chatTarget{username: raw}, nil
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return chatTarget{}, &channel.ValidationError{Field: "to", Message: "telegram target must be @username or chat_id"}
	}
	return chatTarget{chatID: chatID}, nil
}

func sendTelegramText(bot *tgbotapi.BotAPI, target chatTarget, text string) (tgbotapi.Message, error) {
	message := tgbotapi.NewMessage(target.chatID, text)
	message.ChannelUsername = target.username
	return bot.Send(message)
}

func sendTelegramMedia(bot *tgbotapi.BotAPI, target chatTarget, req channel.SendRequest) (tgbotapi.Message, error) {
	ref := strings.TrimSpace(req.URLOrPath)
	var file tgbotapi.RequestFileData
	if adapterutil.IsRemote(ref) {
		file = tgbotapi.FileURL(ref)
	} else {
		f, err := os.Open(ref)
		if err != nil {
			return tgbotapi.Message{}, fmt.Errorf("open media: %w", err)
		}
		defer f.Close()
		file = tgbotapi.FileReader{Name: filepath.Base(ref), Reader: f}
	}
	return bot.Send(buildTelegramMedia(target, req.Type, file, sanitize.Text(req.Caption)))
}

func buildTelegramMedia(target chatTarget, mediaType channel.MediaType, file tgbotapi.RequestFileData, caption string) tgbotapi.Chattable {
	switch mediaType {
	case channel.MediaImage:
		photo := tgbotapi.NewPhoto(target.chatID, file)
		photo.ChannelUsername = target.username
		photo.Caption = caption
		return photo
	case channel.MediaGIF:
		animation := tgbotapi.NewAnimation(target.chatID, file)
		animation.ChannelUsername = target.username
		animation.Caption = caption
		return animation
	case channel.MediaVideo:
		video := tgbotapi.NewVideo(target.chatID, file)
		video.ChannelUsername = target.username
		video.Caption = caption
		return video
	case channel.MediaAudio:
		audio := tgbotapi.NewAudio(target.chatID, file)
		audio.ChannelUsername = target.username
		audio.Caption = caption
		return audio
	default:
		document := tgbotapi.NewDocument(target.chatID, file)
		document.ChannelUsername = target.username
		document.Caption = caption
		return document
	}
}

func cleanTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := map[string]struct{}{}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
