package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

func messageEvent(chat types.JID, fromMe bool, pushName string, msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, IsFromMe: fromMe},
			ID:            "3EB0ABC",
			PushName:      pushName,
			Timestamp:     time.Unix(1700000000, 0),
		},
		Message: msg,
	}
}

func TestNormalizeMessage(t *testing.T) {
	t.Parallel()

	user := types.NewJID("15550001", types.DefaultUserServer)
	text := &waE2E.Message{Conversation: proto.String("hello")}

	env, ok := normalizeMessage(messageEvent(user, false, "Ann", text))
	require.True(t, ok)
	assert.Equal(t, channel.Envelope{
		Platform:   channel.PlatformWhatsApp,
		MessageID:  "3EB0ABC",
		SessionKey: "15550001@s.whatsapp.net",
		Body:       "hello",
		Timestamp:  1700000000,
		SenderName: "Ann",
	}, env)

	env, ok = normalizeMessage(messageEvent(user, true, "", text))
	require.True(t, ok)
	assert.True(t, env.FromMe)
	assert.Equal(t, "Me", env.SenderName)
	assert.Equal(t, "15550001@s.whatsapp.net", env.SessionKey)

	env, ok = normalizeMessage(messageEvent(user, false, "", &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("caption")},
	}))
	require.True(t, ok)
	assert.Equal(t, "caption", env.Body)
	assert.Equal(t, "Unknown", env.SenderName)

	env, ok = normalizeMessage(messageEvent(user, false, "", &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("linked")},
	}))
	require.True(t, ok)
	assert.Equal(t, "linked", env.Body)

	_, ok = normalizeMessage(messageEvent(types.StatusBroadcastJID, false, "Ann", text))
	assert.False(t, ok, "status broadcasts are ignored")

	_, ok = normalizeMessage(messageEvent(user, false, "Ann", &waE2E.Message{}))
	assert.False(t, ok, "protocol messages without body are ignored")

	_, ok = normalizeMessage(nil)
	assert.False(t, ok)
}

func TestParseJID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "15550001@c.us", want: "15550001@s.whatsapp.net"},
		{in: "15550001@s.whatsapp.net", want: "15550001@s.whatsapp.net"},
		{in: "+15550001", want: "15550001@s.whatsapp.net"},
		{in: "120363000000000000@g.us", want: "120363000000000000@g.us"},
	}
	for _, tt := range tests {
		jid, err := parseJID(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, jid.String(), tt.in)
	}

	_, err := parseJID("+")
	var validation *channel.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestBuildMediaMessage(t *testing.T) {
	t.Parallel()

	up := whatsmeow.UploadResponse{URL: "https://mmg.example/x", DirectPath: "/x", FileLength: 42}
	media := adapterutil.Media{Name: "clip.mp4", MIME: "video/mp4"}

	gif := buildMediaMessage(up, media, channel.MediaGIF, "fun")
	require.NotNil(t, gif.GetVideoMessage())
	assert.True(t, gif.GetVideoMessage().GetGifPlayback())
	assert.Equal(t, "fun", gif.GetVideoMessage().GetCaption())
	assert.Equal(t, uint64(42), gif.GetVideoMessage().GetFileLength())

	img := buildMediaMessage(up, media, channel.MediaImage, "")
	require.NotNil(t, img.GetImageMessage())
	assert.Nil(t, img.GetImageMessage().Caption)

	audio := buildMediaMessage(up, media, channel.MediaAudio, "ignored")
	require.NotNil(t, audio.GetAudioMessage())

	doc := buildMediaMessage(up, media, channel.MediaDocument, "notes")
	require.NotNil(t, doc.GetDocumentMessage())
	assert.Equal(t, "clip.mp4", doc.GetDocumentMessage().GetFileName())
	assert.Equal(t, "notes", doc.GetDocumentMessage().GetCaption())

	assert.Equal(t, whatsmeow.MediaVideo, uploadKind(channel.MediaGIF))
	assert.Equal(t, whatsmeow.MediaDocument, uploadKind(channel.MediaType("zip")))
}

func TestLocalStartReleasesStoreWhenConnectFails(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		proxy string
		want  string
	}{
		{proxy: "ftp://127.0.0.1:1", want: "whatsapp proxy"},
		{proxy: "http://127.0.0.1:1", want: "connect"},
	} {
		c := NewLocalClient(nil, t.TempDir(), tc.proxy, nil)
		err := c.Start(context.Background(), nil)
		require.ErrorContains(t, err, tc.want, tc.proxy)

		c.mu.RLock()
		assert.Nil(t, c.db, tc.proxy)
		assert.Nil(t, c.client, tc.proxy)
		c.mu.RUnlock()
		assert.False(t, c.Ready())

		// the store was closed, so a second attempt opens it again and fails the same way
		require.ErrorContains(t, c.Start(context.Background(), nil), tc.want, tc.proxy)
	}
}
