package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

const (
	DefaultNameCacheTTL = time.Hour

	defaultHTTPTimeout = 15 * time.Second
)

// Options configures the Slack adapter. AppToken enables socket mode.
type Options struct {
	BotToken     string
	AppToken     string
	APIURL       string
	NameCacheTTL time.Duration
}

type SlackAdapter struct {
	logger    *slog.Logger
	opts      Options
	api       *slackapi.Client
	http      *resty.Client
	names     *channel.TTLCache[string, string]
	connected atomic.Bool
}

func NewSlackAdapter(log *slog.Logger, opts Options) *SlackAdapter {
	if log == nil {
		log = slog.Default()
	}
	if opts.APIURL == "" {
		opts.APIURL = slackapi.APIURL
	}
	if !strings.HasSuffix(opts.APIURL, "/") {
		opts.APIURL += "/"
	}
	if opts.NameCacheTTL <= 0 {
		opts.NameCacheTTL = DefaultNameCacheTTL
	}
	logger := log.With(slog.String("adapter", "slack"))
	apiOpts := []slackapi.Option{
		slackapi.OptionAPIURL(opts.APIURL),
		slackapi.OptionLog(newSlackSlogLogger(logger)),
	}
	if opts.AppToken != "" {
		apiOpts = append(apiOpts, slackapi.OptionAppLevelToken(opts.AppToken))
	}
	return &SlackAdapter{
		logger: logger,
		opts:   opts,
		api:    slackapi.New(opts.BotToken, apiOpts...),
		http:   resty.New().SetTimeout(defaultHTTPTimeout),
		names:  channel.NewTTLCache[string, string](opts.NameCacheTTL),
	}
}

func (a *SlackAdapter) Platform() channel.Platform {
	return channel.PlatformSlack
}

// Connect starts socket mode when an app token is configured. Without one the
// adapter only sends and inbound events are expected on the HTTP fallback.
func (a *SlackAdapter) Connect(ctx context.Context, emitter channel.Emitter) (channel.Connection, error) {
	if a.opts.BotToken == "" {
		return nil, errors.New("slack bot token is required")
	}
	if a.opts.AppToken == "" {
		a.logger.Info("socket mode disabled, no app token")
		return channel.NewConnection(a.Platform(), func(context.Context) error { return nil }), nil
	}
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	client := socketmode.New(a.api, socketmode.OptionLog(newSlackSlogLogger(a.logger)))
	go a.handleEvents(connCtx, client, emitter)
	go func() {
		if err := client.RunContext(connCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("socket mode stopped", slog.Any("error", err))
		}
		a.connected.Store(false)
	}()
	stop := func(context.Context) error {
		cancel()
		a.connected.Store(false)
		return nil
	}
	return channel.NewConnection(a.Platform(), stop), nil
}

func (a *SlackAdapter) handleEvents(ctx context.Context, client *socketmode.Client, emitter channel.Emitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				a.logger.Info("connecting")
			case socketmode.EventTypeConnected:
				a.connected.Store(true)
				a.logger.Info("connected")
			case socketmode.EventTypeConnectionError, socketmode.EventTypeDisconnect, socketmode.EventTypeInvalidAuth:
				a.connected.Store(false)
				a.logger.Warn("connection lost", slog.String("event", string(evt.Type)))
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					client.Ack(*evt.Request)
				}
				eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				a.HandleEventsAPI(ctx, eventsAPI, emitter)
			}
		}
	}
}

type slackMessage struct {
	User      string
	Text      string
	TimeStamp string
	Channel   string
	SubType   string
	BotID     string
}

// HandleEventsAPI normalizes message and app_mention callbacks and emits them.
func (a *SlackAdapter) HandleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent, emitter channel.Emitter) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	var msg slackMessage
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		msg = slackMessage{User: ev.User, Text: ev.Text, TimeStamp: ev.TimeStamp, Channel: ev.Channel, SubType: ev.SubType, BotID: ev.BotID}
	case *slackevents.AppMentionEvent:
		msg = slackMessage{User: ev.User, Text: ev.Text, TimeStamp: ev.TimeStamp, Channel: ev.Channel, BotID: ev.BotID}
	default:
		return
	}
	env, ok := a.normalize(ctx, msg)
	if !ok {
		return
	}
	emitter.Emit(ctx, env)
}

func (a *SlackAdapter) normalize(ctx context.Context, msg slackMessage) (channel.Envelope, bool) {
	if msg.BotID != "" || msg.SubType == "bot_message" {
		return channel.Envelope{}, false
	}
	text := adapterutil.StripMentions(msg.Text)
	if text == "" {
		return channel.Envelope{}, false
	}
	ts, _ := strconv.ParseFloat(msg.TimeStamp, 64)
	return channel.Envelope{
		Platform:   channel.PlatformSlack,
		MessageID:  msg.TimeStamp,
		SessionKey: msg.Channel,
		Body:       text,
		Timestamp:  ts,
		SenderName: a.displayName(ctx, msg.User),
		FromMe:     false,
	}, true
}

// displayName resolves a user id through the name cache. Lookup failures fall
// back to the raw id and are not cached.
func (a *SlackAdapter) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return "Unknown"
	}
	if name, ok := a.names.Get(userID); ok {
		return name
	}
	user, err := a.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		a.logger.Warn("user lookup failed", slog.String("user", userID), slog.Any("error", err))
		return userID
	}
	name := pickName(user, userID)
	a.names.Set(userID, name)
	return name
}

func pickName(user *slackapi.User, fallback string) string {
	if user == nil {
		return fallback
	}
	for _, candidate := range []string{user.Profile.DisplayName, user.RealName, user.Name} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return fallback
}

func (a *SlackAdapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if a.opts.BotToken == "" {
		return channel.SendResult{}, &channel.NotInitializedError{Platform: channel.PlatformSlack}
	}
	text := req.MediaText()
	var (
		ts  string
		err error
	)
	if a.connected.Load() {
		_, ts, err = a.api.PostMessageContext(ctx, req.To, slackapi.MsgOptionText(text, false))
	} else {
		ts, err = a.postMessage(ctx, req.To, text)
	}
	if err != nil {
		return channel.SendResult{}, err
	}
	a.logger.Info("sent",
		slog.String("channel", req.To),
		slog.Bool("socket", a.connected.Load()),
		slog.String("text", adapterutil.SummarizeText(text)),
	)
	return channel.SendResult{ID: ts}, nil
}

type postMessageResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// postMessage calls chat.postMessage directly when no socket connection is up.
func (a *SlackAdapter) postMessage(ctx context.Context, channelID, text string) (string, error) {
	var out postMessageResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(a.opts.BotToken).
		SetBody(map[string]string{"channel": channelID, "text": text}).
		SetResult(&out).
		Post(a.opts.APIURL + "chat.postMessage")
	if err != nil {
		return "", fmt.Errorf("slack chat.postMessage: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("slack chat.postMessage responded %s", resp.Status())
	}
	if !out.OK {
		return "", fmt.Errorf("slack chat.postMessage: %s", out.Error)
	}
	return out.TS, nil
}

func (a *SlackAdapter) Status() map[string]any {
	return map[string]any{
		"enabled":     a.opts.BotToken != "",
		"connected":   a.connected.Load(),
		"socket_mode": a.opts.AppToken != "",
	}
}

// Connected reports whether the socket-mode connection is up.
func (a *SlackAdapter) Connected() bool {
	return a.connected.Load()
}
