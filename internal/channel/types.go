package channel

import (
	"strings"
)

// Platform identifies one of the chat networks the bridge speaks to.
type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformTelegram Platform = "telegram"
	PlatformSlack    Platform = "slack"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{PlatformWhatsApp, PlatformTelegram, PlatformSlack}

func (p Platform) String() string {
	return string(p)
}

// ParsePlatform normalizes raw into a Platform. An empty value selects WhatsApp.
func ParsePlatform(raw string) (Platform, error) {
	switch normalizePlatform(raw) {
	case "", PlatformWhatsApp:
		return PlatformWhatsApp, nil
	case PlatformTelegram:
		return PlatformTelegram, nil
	case PlatformSlack:
		return PlatformSlack, nil
	default:
		return "", &ValidationError{Field: "platform", Message: "unsupported platform: " + strings.TrimSpace(raw), Err: ErrUnknownPlatform}
	}
}

func normalizePlatform(raw string) Platform {
	return Platform(strings.ToLower(strings.TrimSpace(raw)))
}

// MediaType is the kind of attachment carried by a media send.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaGIF      MediaType = "gif"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// ParseMediaType maps raw to a known media type; anything unrecognized is a document.
func ParseMediaType(raw string) MediaType {
	switch MediaType(strings.ToLower(strings.TrimSpace(raw))) {
	case MediaImage:
		return MediaImage
	case MediaGIF:
		return MediaGIF
	case MediaVideo:
		return MediaVideo
	case MediaAudio:
		return MediaAudio
	default:
		return MediaDocument
	}
}

// Envelope is the canonical inbound message forwarded to the backend. The JSON
// names follow the backend's existing contract.
type Envelope struct {
	Platform   Platform `json:"platform"`
	MessageID  string   `json:"message_id"`
	SessionKey string   `json:"from"`
	Body       string   `json:"body"`
	// Timestamp keeps the platform's native epoch units.
	Timestamp  float64 `json:"timestamp"`
	SenderName string  `json:"senderName"`
	FromMe     bool    `json:"fromMe"`
}

// DedupKey identifies the envelope for duplicate suppression. Telegram message
// ids are only unique within a chat, so the session key is part of it.
func (e Envelope) DedupKey() string {
	return e.Platform.String() + "|" + e.SessionKey + "|" + e.MessageID
}

// SendRequest is the unified outbound request shape.
type SendRequest struct {
	To        string    `json:"to"`
	Platform  Platform  `json:"platform,omitempty"`
	Message   string    `json:"message,omitempty"`
	IsMedia   bool      `json:"is_media,omitempty"`
	URLOrPath string    `json:"url_or_path,omitempty"`
	Type      MediaType `json:"type,omitempty"`
	Caption   string    `json:"caption,omitempty"`
}

// Validate checks the request before any transport is touched.
func (r SendRequest) Validate() error {
	if strings.TrimSpace(r.To) == "" || (r.Message == "" && !r.IsMedia) {
		return &ValidationError{Field: "to", Message: "Missing 'to' or content"}
	}
	if r.IsMedia && strings.TrimSpace(r.URLOrPath) == "" {
		return &ValidationError{Field: "url_or_path", Message: "Missing 'url_or_path' for media"}
	}
	return nil
}

// MediaText renders a media request as plain text for transports without uploads.
func (r SendRequest) MediaText() string {
	if !r.IsMedia {
		return r.Message
	}
	return r.Caption + "\n" + r.URLOrPath
}

// TypingRequest starts or stops a typing indicator.
type TypingRequest struct {
	To       string   `json:"to"`
	Platform Platform `json:"platform,omitempty"`
}

// SendResult reports a successful delivery.
type SendResult struct {
	ID       string   `json:"id,omitempty"`
	Platform Platform `json:"platform"`
}
