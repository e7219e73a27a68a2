package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Aquillum/LiteClaw/internal/version"
)

func TestConfigCommandMasksSecrets(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:SECRETTOKENVALUE")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("WORK_DIR", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":4100\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config command: %v", err)
	}
	text := out.String()
	if strings.Contains(text, "SECRETTOKEN") {
		t.Fatalf("token leaked:\n%s", text)
	}
	if !strings.Contains(text, "****ALUE") {
		t.Fatalf("masked token missing:\n%s", text)
	}
	if !strings.Contains(text, `":4100"`) {
		t.Fatalf("file value missing:\n%s", text)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command: %v", err)
	}
	var info version.Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info.Version != version.Version {
		t.Fatalf("version = %q", info.Version)
	}

	out.Reset()
	if err := printVersion(&out, false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "LiteClaw bridge ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
