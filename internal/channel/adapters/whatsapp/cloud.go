package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

const (
	DefaultGraphURL = "https://graph.facebook.com/v21.0"

	cloudTimeout = 30 * time.Second
)

type CloudOptions struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	GraphURL      string
}

// CloudClient talks to the hosted WhatsApp Business Cloud API. Inbound
// messages arrive on the webhook rather than a receive loop.
type CloudClient struct {
	logger *slog.Logger
	opts   CloudOptions
	http   *resty.Client
	ready  atomic.Bool
}

func NewCloudClient(log *slog.Logger, opts CloudOptions) *CloudClient {
	if log == nil {
		log = slog.Default()
	}
	if opts.GraphURL == "" {
		opts.GraphURL = DefaultGraphURL
	}
	return &CloudClient{
		logger: log.With(slog.String("client", ModeCloud)),
		opts:   opts,
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.GraphURL, "/")).
			SetAuthToken(opts.AccessToken).
			SetTimeout(cloudTimeout),
	}
}

func (c *CloudClient) Mode() string {
	return ModeCloud
}

func (c *CloudClient) Start(_ context.Context, _ channel.Emitter) error {
	if c.opts.AccessToken == "" || c.opts.PhoneNumberID == "" {
		return errors.New("whatsapp cloud api requires an access token and a phone number id")
	}
	c.ready.Store(true)
	return nil
}

func (c *CloudClient) Stop(_ context.Context) error {
	c.ready.Store(false)
	return nil
}

func (c *CloudClient) Ready() bool {
	return c.ready.Load()
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type sendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

func (c *CloudClient) SendText(ctx context.Context, to, text string) (string, error) {
	return c.sendMessage(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                cloudRecipient(to),
		"type":              "text",
		"text":              map[string]any{"body": text},
	})
}

// SendMedia uploads the media first and then references it by id.
func (c *CloudClient) SendMedia(ctx context.Context, to string, media adapterutil.Media, mediaType channel.MediaType, caption string) (string, error) {
	var uploaded uploadResponse
	var apiErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"messaging_product": "whatsapp",
			"type":              media.MIME,
		}).
		SetFileReader("file", media.Name, bytes.NewReader(media.Data)).
		SetResult(&uploaded).
		SetError(&apiErr).
		Post("/" + c.opts.PhoneNumberID + "/media")
	if err := graphFailure("upload media", resp, err, apiErr); err != nil {
		return "", err
	}
	kind := cloudMediaKind(mediaType)
	object := map[string]any{"id": uploaded.ID}
	if caption != "" && kind != "audio" {
		object["caption"] = caption
	}
	if kind == "document" {
		object["filename"] = media.Name
	}
	return c.sendMessage(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                cloudRecipient(to),
		"type":              kind,
		kind:                object,
	})
}

// SetTyping is a no-op: the Cloud API has no standalone typing indicator.
func (c *CloudClient) SetTyping(_ context.Context, _ string, _ bool) error {
	return nil
}

func (c *CloudClient) sendMessage(ctx context.Context, body map[string]any) (string, error) {
	var out sendMessageResponse
	var apiErr graphError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/" + c.opts.PhoneNumberID + "/messages")
	if err := graphFailure("send message", resp, err, apiErr); err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

func graphFailure(op string, resp *resty.Response, err error, apiErr graphError) error {
	if err != nil {
		return fmt.Errorf("whatsapp cloud api %s: %w", op, err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return fmt.Errorf("whatsapp cloud api %s: %s (code %d)", op, apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("whatsapp cloud api %s: %s", op, resp.Status())
	}
	return nil
}

// VerifySubscription answers the webhook subscription handshake.
func (c *CloudClient) VerifySubscription(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || c.opts.VerifyToken == "" || token != c.opts.VerifyToken {
		return "", false
	}
	return challenge, true
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
}

type webhookCaption struct {
	Caption string `json:"caption"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    webhookCaption `json:"image"`
	Video    webhookCaption `json:"video"`
	Document webhookCaption `json:"document"`
}

func (m webhookMessage) body() string {
	for _, text := range []string{m.Text.Body, m.Image.Caption, m.Video.Caption, m.Document.Caption} {
		if text != "" {
			return text
		}
	}
	return ""
}

// ParseWebhook converts a webhook delivery into envelopes. Status updates and
// messages without text are skipped.
func (c *CloudClient) ParseWebhook(body []byte) ([]channel.Envelope, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	var envs []channel.Envelope
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				text := msg.body()
				if text == "" {
					continue
				}
				sender := strings.TrimSpace(names[msg.From])
				if sender == "" {
					sender = "Unknown"
				}
				ts, _ := strconv.ParseFloat(msg.Timestamp, 64)
				envs = append(envs, channel.Envelope{
					Platform:   channel.PlatformWhatsApp,
					MessageID:  msg.ID,
					SessionKey: msg.From,
					Body:       text,
					Timestamp:  ts,
					SenderName: sender,
				})
			}
		}
	}
	return envs, nil
}

func cloudMediaKind(mediaType channel.MediaType) string {
	switch mediaType {
	case channel.MediaImage:
		return "image"
	case channel.MediaGIF, channel.MediaVideo:
		return "video"
	case channel.MediaAudio:
		return "audio"
	default:
		return "document"
	}
}

// cloudRecipient strips JID suffixes and the leading '+' the Graph API rejects.
func cloudRecipient(to string) string {
	to = strings.TrimSpace(to)
	if user, _, found := strings.Cut(to, "@"); found {
		to = user
	}
	return strings.TrimPrefix(to, "+")
}
