package adapterutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

// MaxMediaBytes caps remote and local media loaded into memory.
const MaxMediaBytes = 64 << 20

// Media is an attachment loaded into memory.
type Media struct {
	Name string
	MIME string
	Data []byte
}

// IsRemote reports whether ref is fetched over HTTP rather than read from disk.
func IsRemote(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), "http")
}

// LoadMedia reads ref from a URL or the local filesystem and detects its MIME type.
func LoadMedia(ctx context.Context, client *resty.Client, ref string) (Media, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Media{}, errors.New("media reference is required")
	}
	var (
		data []byte
		name string
		err  error
	)
	if IsRemote(ref) {
		data, name, err = fetchRemote(ctx, client, ref, MaxMediaBytes)
	} else {
		data, err = readLocal(ref)
		name = filepath.Base(ref)
	}
	if err != nil {
		return Media{}, err
	}
	mime := mimetype.Detect(data)
	if name == "" || name == "." || name == "/" {
		name = "file" + mime.Extension()
	}
	return Media{Name: name, MIME: mime.String(), Data: data}, nil
}

// fetchRemote downloads ref, stopping once the body passes limit bytes.
func fetchRemote(ctx context.Context, client *resty.Client, ref string, limit int) ([]byte, string, error) {
	if client == nil {
		client = resty.New()
	}
	resp, err := client.R().
		SetContext(ctx).
		SetResponseBodyLimit(limit).
		Get(ref)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode())
	}
	name := path.Base(resp.RawResponse.Request.URL.Path)
	return resp.Body(), name, nil
}

func readLocal(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read media: %s is a directory", p)
	}
	if info.Size() > MaxMediaBytes {
		return nil, fmt.Errorf("read media: %d bytes exceeds limit", info.Size())
	}
	return os.ReadFile(p)
}
