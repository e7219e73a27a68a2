package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

const (
	sessionDir   = "sessions/whatsapp"
	storeFile    = "whatsmeow.db"
	storeDialect = "sqlite"

	qrEventCode    = "code"
	qrEventSuccess = "success"
)

// LocalClient drives a linked-device session with whatsmeow. The device store
// lives in a SQLite file under the work directory.
type LocalClient struct {
	logger  *slog.Logger
	workDir string
	proxy   string
	qr      *QRPage

	mu      sync.RWMutex
	db      *sql.DB
	client  *whatsmeow.Client
	emitter channel.Emitter
}

// NewLocalClient creates a whatsmeow client. proxy is an optional http, https or
// socks5 URL for the websocket and media traffic.
func NewLocalClient(log *slog.Logger, workDir, proxy string, qr *QRPage) *LocalClient {
	if log == nil {
		log = slog.Default()
	}
	return &LocalClient{
		logger:  log.With(slog.String("client", ModeLocal)),
		workDir: workDir,
		proxy:   strings.TrimSpace(proxy),
		qr:      qr,
	}
}

func (c *LocalClient) Mode() string {
	return ModeLocal
}

func (c *LocalClient) StorePath() string {
	return filepath.Join(c.workDir, sessionDir, storeFile)
}

func (c *LocalClient) Start(ctx context.Context, emitter channel.Emitter) error {
	storePath := c.StorePath()
	if err := os.MkdirAll(filepath.Dir(storePath), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	db, err := sql.Open(storeDialect, "file:"+storePath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}
	container := sqlstore.NewWithDB(db, storeDialect, newWASlogLogger(c.logger, "store"))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("upgrade device store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("load device: %w", err)
	}
	client := whatsmeow.NewClient(device, newWASlogLogger(c.logger, "client"))
	client.AddEventHandler(c.handleEvent)

	c.mu.Lock()
	c.db = db
	c.client = client
	c.emitter = emitter
	c.mu.Unlock()

	if err := c.connect(ctx, client); err != nil {
		_ = c.Stop(ctx)
		return err
	}
	return nil
}

// connect opens the websocket. An unpaired device also starts the QR flow.
func (c *LocalClient) connect(ctx context.Context, client *whatsmeow.Client) error {
	if c.proxy != "" {
		if err := client.SetProxyAddress(c.proxy); err != nil {
			return fmt.Errorf("whatsapp proxy: %w", err)
		}
	}
	if client.Store.ID != nil {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		return nil
	}
	qrChan, err := client.GetQRChannel(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	go c.watchQR(qrChan)
	return nil
}

func (c *LocalClient) Stop(_ context.Context) error {
	c.mu.Lock()
	client, db := c.client, c.db
	c.client, c.db = nil, nil
	c.mu.Unlock()
	if client != nil {
		client.Disconnect()
	}
	if db != nil {
		return db.Close()
	}
	return nil
}

func (c *LocalClient) Ready() bool {
	client := c.current()
	return client != nil && client.IsConnected() && client.IsLoggedIn()
}

func (c *LocalClient) SendText(ctx context.Context, to, text string) (string, error) {
	client, jid, err := c.target(to)
	if err != nil {
		return "", err
	}
	resp, err := client.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *LocalClient) SendMedia(ctx context.Context, to string, media adapterutil.Media, mediaType channel.MediaType, caption string) (string, error) {
	client, jid, err := c.target(to)
	if err != nil {
		return "", err
	}
	uploaded, err := client.Upload(ctx, media.Data, uploadKind(mediaType))
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	resp, err := client.SendMessage(ctx, jid, buildMediaMessage(uploaded, media, mediaType, caption))
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *LocalClient) SetTyping(ctx context.Context, to string, composing bool) error {
	client, jid, err := c.target(to)
	if err != nil {
		return err
	}
	state := types.ChatPresencePaused
	if composing {
		state = types.ChatPresenceComposing
	}
	return client.SendChatPresence(ctx, jid, state, types.ChatPresenceMediaText)
}

func (c *LocalClient) current() *whatsmeow.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *LocalClient) target(to string) (*whatsmeow.Client, types.JID, error) {
	client := c.current()
	if client == nil {
		return nil, types.JID{}, &channel.NotInitializedError{Platform: channel.PlatformWhatsApp, Detail: notReadyDetail}
	}
	jid, err := parseJID(to)
	if err != nil {
		return nil, types.JID{}, err
	}
	return client, jid, nil
}

func (c *LocalClient) handleEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message:
		env, ok := normalizeMessage(v)
		if !ok {
			return
		}
		c.mu.RLock()
		emitter := c.emitter
		c.mu.RUnlock()
		if emitter != nil {
			emitter.Emit(context.Background(), env)
		}
	case *events.Connected:
		c.logger.Info("connected")
		c.showSuccess()
	case *events.PairSuccess:
		c.logger.Info("paired", slog.String("jid", v.ID.String()))
		c.showSuccess()
	case *events.LoggedOut:
		c.logger.Warn("logged out", slog.Any("reason", v.Reason))
	case *events.Disconnected:
		c.logger.Warn("disconnected")
	}
}

func (c *LocalClient) watchQR(items <-chan whatsmeow.QRChannelItem) {
	for item := range items {
		switch item.Event {
		case qrEventCode:
			if c.qr == nil {
				continue
			}
			if err := c.qr.ShowCode(item.Code); err != nil {
				c.logger.Error("show qr failed", slog.Any("error", err))
			}
		case qrEventSuccess:
			c.showSuccess()
		default:
			c.logger.Warn("qr login ended", slog.String("event", item.Event))
		}
	}
}

func (c *LocalClient) showSuccess() {
	if c.qr == nil {
		return
	}
	if err := c.qr.ShowSuccess(); err != nil {
		c.logger.Warn("write qr success page failed", slog.Any("error", err))
	}
}

// normalizeMessage builds an envelope from a message event. Status broadcasts
// and events without a text body are ignored.
func normalizeMessage(evt *events.Message) (channel.Envelope, bool) {
	if evt == nil || evt.Message == nil {
		return channel.Envelope{}, false
	}
	if evt.Info.Chat.String() == types.StatusBroadcastJID.String() {
		return channel.Envelope{}, false
	}
	body := messageBody(evt.Message)
	if body == "" {
		return channel.Envelope{}, false
	}
	sender := strings.TrimSpace(evt.Info.PushName)
	if sender == "" {
		if evt.Info.IsFromMe {
			sender = "Me"
		} else {
			sender = "Unknown"
		}
	}
	var ts float64
	if !evt.Info.Timestamp.IsZero() {
		ts = float64(evt.Info.Timestamp.Unix())
	}
	return channel.Envelope{
		Platform:   channel.PlatformWhatsApp,
		MessageID:  evt.Info.ID,
		SessionKey: evt.Info.Chat.String(),
		Body:       body,
		Timestamp:  ts,
		SenderName: sender,
		FromMe:     evt.Info.IsFromMe,
	}, true
}

func messageBody(msg *waE2E.Message) string {
	for _, text := range []string{
		msg.GetConversation(),
		msg.GetExtendedTextMessage().GetText(),
		msg.GetImageMessage().GetCaption(),
		msg.GetVideoMessage().GetCaption(),
		msg.GetDocumentMessage().GetCaption(),
	} {
		if text != "" {
			return text
		}
	}
	return ""
}

// parseJID accepts a full JID, the legacy "@c.us" form, or a bare phone number.
func parseJID(to string) (types.JID, error) {
	to = strings.TrimSpace(to)
	if user, ok := strings.CutSuffix(to, "@c.us"); ok {
		to = user + "@" + types.DefaultUserServer
	}
	if !strings.Contains(to, "@") {
		user := strings.TrimPrefix(to, "+")
		if user == "" {
			return types.JID{}, &channel.ValidationError{Field: "to", Message: "invalid whatsapp recipient"}
		}
		return types.NewJID(user, types.DefaultUserServer), nil
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return types.JID{}, &channel.ValidationError{Field: "to", Message: "invalid whatsapp recipient: " + err.Error()}
	}
	return jid, nil
}

func uploadKind(mediaType channel.MediaType) whatsmeow.MediaType {
	switch mediaType {
	case channel.MediaImage:
		return whatsmeow.MediaImage
	case channel.MediaGIF, channel.MediaVideo:
		return whatsmeow.MediaVideo
	case channel.MediaAudio:
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func buildMediaMessage(up whatsmeow.UploadResponse, media adapterutil.Media, mediaType channel.MediaType, caption string) *waE2E.Message {
	var captionPtr *string
	if caption != "" {
		captionPtr = proto.String(caption)
	}
	switch mediaType {
	case channel.MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(media.MIME),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case channel.MediaGIF, channel.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(media.MIME),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			GifPlayback:   proto.Bool(mediaType == channel.MediaGIF),
		}}
	case channel.MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(media.MIME),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       captionPtr,
			Title:         proto.String(media.Name),
			FileName:      proto.String(media.Name),
			Mimetype:      proto.String(media.MIME),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	}
}
