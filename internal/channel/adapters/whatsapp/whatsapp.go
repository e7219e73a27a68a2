package whatsapp

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
	"github.com/Aquillum/LiteClaw/internal/sanitize"
)

const (
	ModeLocal    = "local"
	ModeCloud    = "cloud_api"
	ModeDisabled = "disabled"

	notReadyDetail = "WhatsApp client not ready yet. Please wait for initialization."

	mediaFetchTimeout = 60 * time.Second
)

// Client is a WhatsApp transport: the local multi-device session or the
// hosted Cloud API.
type Client interface {
	Mode() string
	Start(ctx context.Context, emitter channel.Emitter) error
	Stop(ctx context.Context) error
	Ready() bool
	SendText(ctx context.Context, to, text string) (string, error)
	SendMedia(ctx context.Context, to string, media adapterutil.Media, mediaType channel.MediaType, caption string) (string, error)
	SetTyping(ctx context.Context, to string, composing bool) error
}

type WhatsAppAdapter struct {
	logger *slog.Logger
	client Client
	http   *resty.Client
}

func NewWhatsAppAdapter(log *slog.Logger, client Client) *WhatsAppAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &WhatsAppAdapter{
		logger: log.With(slog.String("adapter", "whatsapp"), slog.String("mode", client.Mode())),
		client: client,
		http:   resty.New().SetTimeout(mediaFetchTimeout),
	}
}

func (a *WhatsAppAdapter) Platform() channel.Platform {
	return channel.PlatformWhatsApp
}

// Connect starts the underlying client. Pairing may still be pending when it
// returns; sends fail until the client reports ready.
func (a *WhatsAppAdapter) Connect(ctx context.Context, emitter channel.Emitter) (channel.Connection, error) {
	a.logger.Info("start")
	if err := a.client.Start(context.WithoutCancel(ctx), emitter); err != nil {
		return nil, err
	}
	return channel.NewConnection(a.Platform(), a.client.Stop), nil
}

func (a *WhatsAppAdapter) Send(ctx context.Context, req channel.SendRequest) (channel.SendResult, error) {
	if err := a.ensureReady(); err != nil {
		return channel.SendResult{}, err
	}
	var (
		id  string
		err error
	)
	if req.IsMedia {
		var media adapterutil.Media
		media, err = adapterutil.LoadMedia(ctx, a.http, req.URLOrPath)
		if err != nil {
			return channel.SendResult{}, err
		}
		id, err = a.client.SendMedia(ctx, req.To, media, req.Type, sanitize.Text(req.Caption))
	} else {
		id, err = a.client.SendText(ctx, req.To, sanitize.Text(req.Message))
	}
	if err != nil {
		return channel.SendResult{}, err
	}
	a.logger.Info("sent",
		slog.String("to", req.To),
		slog.Bool("media", req.IsMedia),
		slog.String("text", adapterutil.SummarizeText(req.Message)),
	)
	return channel.SendResult{ID: id}, nil
}

func (a *WhatsAppAdapter) StartTyping(ctx context.Context, to string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}
	return a.client.SetTyping(ctx, to, true)
}

func (a *WhatsAppAdapter) StopTyping(ctx context.Context, to string) error {
	if err := a.ensureReady(); err != nil {
		return err
	}
	return a.client.SetTyping(ctx, to, false)
}

func (a *WhatsAppAdapter) Status() map[string]any {
	return map[string]any{
		"enabled": true,
		"ready":   a.client.Ready(),
		"mode":    a.client.Mode(),
	}
}

// Client returns the transport, used by the Cloud API webhook handler.
func (a *WhatsAppAdapter) Client() Client {
	return a.client
}

func (a *WhatsAppAdapter) ensureReady() error {
	if !a.client.Ready() {
		return &channel.NotInitializedError{Platform: channel.PlatformWhatsApp, Detail: notReadyDetail}
	}
	return nil
}
