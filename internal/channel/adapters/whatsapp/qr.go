package whatsapp

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	QRFileName = "qr.html"

	qrImageSize        = 256
	qrRefreshSeconds   = 5
	defaultRemoveAfter = 10 * time.Second
)

var qrPageTemplate = template.Must(template.New("qr").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{if .Refresh}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<title>WhatsApp Login</title>
<style>body{font-family:sans-serif;text-align:center;margin-top:4em}</style>
</head>
<body>
<h2>{{.Title}}</h2>
{{if .Image}}<img src="{{.Image}}" alt="WhatsApp QR code">{{end}}
<p>{{.Detail}}</p>
</body>
</html>
`))

type qrPageData struct {
	Title   string
	Detail  string
	Image   template.URL
	Refresh int
}

// QRPage keeps the login status file under the work directory in sync with the
// pairing flow and mirrors codes to the terminal.
type QRPage struct {
	logger      *slog.Logger
	path        string
	large       bool
	terminal    io.Writer
	removeAfter time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewQRPage(log *slog.Logger, workDir string, large bool) *QRPage {
	if log == nil {
		log = slog.Default()
	}
	return &QRPage{
		logger:      log.With(slog.String("component", "whatsapp_qr")),
		path:        filepath.Join(workDir, QRFileName),
		large:       large,
		terminal:    os.Stdout,
		removeAfter: defaultRemoveAfter,
	}
}

func (p *QRPage) Path() string {
	return p.path
}

// ShowCode renders code to the terminal and rewrites the page with a fresh image.
func (p *QRPage) ShowCode(code string) error {
	if p.large {
		qrterminal.Generate(code, qrterminal.L, p.terminal)
	} else {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, p.terminal)
	}
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	p.cancelRemoval()
	err = p.write(qrPageData{
		Title:   "Scan with WhatsApp",
		Detail:  "Open WhatsApp, go to Linked Devices and scan this code.",
		Image:   template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
		Refresh: qrRefreshSeconds,
	})
	if err == nil {
		p.logger.Info("qr code ready", slog.String("path", p.path))
	}
	return err
}

// ShowSuccess replaces the page with a confirmation and removes it shortly after.
func (p *QRPage) ShowSuccess() error {
	if err := p.write(qrPageData{
		Title:  "WhatsApp connected",
		Detail: "You can close this page.",
	}); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.removeAfter, p.remove)
	return nil
}

func (p *QRPage) cancelRemoval() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *QRPage) remove() {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("remove qr page failed", slog.Any("error", err))
	}
}

func (p *QRPage) write(data qrPageData) error {
	var buf bytes.Buffer
	if err := qrPageTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render qr page: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write qr page: %w", err)
	}
	return os.Rename(tmp, p.path)
}
