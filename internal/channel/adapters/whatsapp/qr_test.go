package whatsapp

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRPageLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	page := NewQRPage(nil, dir, false)
	page.terminal = io.Discard
	page.removeAfter = 50 * time.Millisecond
	assert.Equal(t, filepath.Join(dir, "qr.html"), page.Path())

	require.NoError(t, page.ShowCode("2@abc,def,ghi"))
	data, err := os.ReadFile(page.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "data:image/png;base64,")
	assert.Contains(t, string(data), `http-equiv="refresh"`)

	require.NoError(t, page.ShowSuccess())
	data, err = os.ReadFile(page.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "WhatsApp connected")
	assert.NotContains(t, string(data), "data:image/png")

	require.Eventually(t, func() bool {
		_, err := os.Stat(page.Path())
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQRPageNewCodeCancelsRemoval(t *testing.T) {
	t.Parallel()

	page := NewQRPage(nil, t.TempDir(), true)
	page.terminal = io.Discard
	page.removeAfter = 200 * time.Millisecond

	require.NoError(t, page.ShowSuccess())
	require.NoError(t, page.ShowCode("2@next"))
	time.Sleep(400 * time.Millisecond)
	_, err := os.Stat(page.Path())
	assert.NoError(t, err)
}
