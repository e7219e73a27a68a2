package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

type fakeGraph struct {
	mu       sync.Mutex
	messages []map[string]any
	uploads  []string
	auth     string
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()
	switch r.URL.Path {
	case "/v1/PHONE/media":
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.uploads = append(f.uploads, fmt.Sprintf("%s:%s:%s:%d", header.Filename, r.FormValue("type"), r.FormValue("messaging_product"), len(data)))
		f.mu.Unlock()
		_, _ = fmt.Fprint(w, `{"id":"media-1"}`)
	case "/v1/PHONE/messages":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["to"] == "000" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`)
			return
		}
		f.mu.Lock()
		f.messages = append(f.messages, body)
		f.mu.Unlock()
		_, _ = fmt.Fprint(w, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.CLOUD"}]}`)
	default:
		http.NotFound(w, r)
	}
}

func newCloudClient(t *testing.T, fake *fakeGraph) *CloudClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewCloudClient(nil, CloudOptions{
		AccessToken:   "EAAG",
		PhoneNumberID: "PHONE",
		VerifyToken:   "verify-me",
		GraphURL:      srv.URL + "/v1/",
	})
}

func TestCloudStartRequiresCredentials(t *testing.T) {
	t.Parallel()

	client := NewCloudClient(nil, CloudOptions{})
	require.Error(t, client.Start(context.Background(), nil))
	assert.False(t, client.Ready())
}

func TestCloudSendText(t *testing.T) {
	t.Parallel()

	fake := &fakeGraph{}
	client := newCloudClient(t, fake)
	require.NoError(t, client.Start(context.Background(), nil))
	assert.True(t, client.Ready())

	id, err := client.SendText(context.Background(), "+15550001@c.us", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.CLOUD", id)

	fake.mu.Lock()
	require.Len(t, fake.messages, 1)
	msg := fake.messages[0]
	assert.Equal(t, "Bearer EAAG", fake.auth)
	fake.mu.Unlock()
	assert.Equal(t, "15550001", msg["to"])
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, map[string]any{"body": "hello"}, msg["text"])

	_, err = client.SendText(context.Background(), "000", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestCloudSendMedia(t *testing.T) {
	t.Parallel()

	fake := &fakeGraph{}
	client := newCloudClient(t, fake)

	media := adapterutil.Media{Name: "cat.png", MIME: "image/png", Data: []byte("png-bytes")}
	id, err := client.SendMedia(context.Background(), "15550001", media, channel.MediaImage, "a cat")
	require.NoError(t, err)
	assert.Equal(t, "wamid.CLOUD", id)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"cat.png:image/png:whatsapp:9"}, fake.uploads)
	require.Len(t, fake.messages, 1)
	assert.Equal(t, "image", fake.messages[0]["type"])
	assert.Equal(t, map[string]any{"id": "media-1", "caption": "a cat"}, fake.messages[0]["image"])
}

func TestCloudWebhook(t *testing.T) {
	t.Parallel()

	client := NewCloudClient(nil, CloudOptions{VerifyToken: "verify-me"})

	challenge, ok := client.VerifySubscription("subscribe", "verify-me", "12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", challenge)
	_, ok = client.VerifySubscription("subscribe", "wrong", "12345")
	assert.False(t, ok)

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{
		"contacts":[{"profile":{"name":"Ann"},"wa_id":"15550001"}],
		"messages":[
			{"from":"15550001","id":"wamid.A","timestamp":"1700000000","type":"text","text":{"body":"hi"}},
			{"from":"15550002","id":"wamid.B","timestamp":"1700000001","type":"image","image":{"caption":"look"}},
			{"from":"15550001","id":"wamid.C","timestamp":"1700000002","type":"sticker"}
		]}}]}]}`
	envs, err := client.ParseWebhook([]byte(payload))
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, channel.Envelope{
		Platform:   channel.PlatformWhatsApp,
		MessageID:  "wamid.A",
		SessionKey: "15550001",
		Body:       "hi",
		Timestamp:  1700000000,
		SenderName: "Ann",
	}, envs[0])
	assert.Equal(t, "look", envs[1].Body)
	assert.Equal(t, "Unknown", envs[1].SenderName)

	_, err = client.ParseWebhook([]byte("{"))
	require.Error(t, err)
}

func TestCloudRecipient(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "15550001", cloudRecipient("+15550001"))
	assert.Equal(t, "15550001", cloudRecipient("15550001@s.whatsapp.net"))
	assert.Equal(t, "document", cloudMediaKind(channel.MediaType("pdf")))
	assert.Equal(t, "video", cloudMediaKind(channel.MediaGIF))
}
