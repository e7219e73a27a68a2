package whatsapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

type fakeClient struct {
	mu      sync.Mutex
	ready   bool
	texts   []string
	media   []adapterutil.Media
	caption string
	typing  []bool
	started bool
	stopped bool
	sendErr error
}

func (f *fakeClient) Mode() string { return "fake" }

func (f *fakeClient) Start(context.Context, channel.Emitter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeClient) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeClient) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeClient) SendText(_ context.Context, _ string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.texts = append(f.texts, text)
	return "wamid.1", nil
}

func (f *fakeClient) SendMedia(_ context.Context, _ string, media adapterutil.Media, _ channel.MediaType, caption string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, media)
	f.caption = caption
	return "wamid.2", nil
}

func (f *fakeClient) SetTyping(_ context.Context, _ string, composing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, composing)
	return nil
}

func TestSendRequiresReadyClient(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	adapter := NewWhatsAppAdapter(nil, client)

	_, err := adapter.Send(context.Background(), channel.SendRequest{To: "15550001@c.us", Message: "hi"})
	var notInit *channel.NotInitializedError
	require.True(t, errors.As(err, &notInit))
	assert.Equal(t, "WhatsApp client not ready yet. Please wait for initialization.", err.Error())

	require.ErrorAs(t, adapter.StartTyping(context.Background(), "15550001@c.us"), &notInit)
	assert.Empty(t, client.texts)
	assert.Equal(t, false, adapter.Status()["ready"])
}

func TestSendSanitizesText(t *testing.T) {
	t.Parallel()

	client := &fakeClient{ready: true}
	adapter := NewWhatsAppAdapter(nil, client)

	result, err := adapter.Send(context.Background(), channel.SendRequest{To: "15550001@c.us", Message: "₹100 ‘test’\x07"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", result.ID)
	assert.Equal(t, []string{"Rs.100 'test'"}, client.texts)
}

func TestSendLocalMedia(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))

	client := &fakeClient{ready: true}
	adapter := NewWhatsAppAdapter(nil, client)
	result, err := adapter.Send(context.Background(), channel.SendRequest{
		To: "15550001@c.us", IsMedia: true, URLOrPath: path, Type: channel.MediaDocument, Caption: "“Q3”",
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.2", result.ID)
	require.Len(t, client.media, 1)
	assert.Equal(t, "report.pdf", client.media[0].Name)
	assert.Equal(t, "application/pdf", client.media[0].MIME)
	assert.Equal(t, `"Q3"`, client.caption)

	_, err = adapter.Send(context.Background(), channel.SendRequest{
		To: "15550001@c.us", IsMedia: true, URLOrPath: filepath.Join(t.TempDir(), "missing.png"), Type: channel.MediaImage,
	})
	require.Error(t, err)
}

func TestTypingAndLifecycle(t *testing.T) {
	t.Parallel()

	client := &fakeClient{ready: true}
	adapter := NewWhatsAppAdapter(nil, client)

	conn, err := adapter.Connect(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, client.started)

	require.NoError(t, adapter.StartTyping(context.Background(), "15550001@c.us"))
	require.NoError(t, adapter.StopTyping(context.Background(), "15550001@c.us"))
	assert.Equal(t, []bool{true, false}, client.typing)

	require.NoError(t, conn.Stop(context.Background()))
	assert.True(t, client.stopped)
	assert.Equal(t, map[string]any{"enabled": true, "ready": true, "mode": "fake"}, adapter.Status())
}
