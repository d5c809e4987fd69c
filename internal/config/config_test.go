package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Identity.ClientID != defaultIdentityClientID {
		t.Fatalf("expected default client id, got %q", cfg.Identity.ClientID)
	}
	if cfg.Tools.PublicBinary != defaultPublicBinary {
		t.Fatalf("expected default public binary, got %q", cfg.Tools.PublicBinary)
	}
}

func TestLoadAppliesOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
scratch_dir = "` + filepath.Join(dir, "scratch") + `"

[identity]
stage_url = "https://auth.example.test/token/"
client_id = "  worker-x  "

[signing]
algorithm = "ES256"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Identity.StageURL != "https://auth.example.test/token" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Identity.StageURL)
	}
	if cfg.Identity.ClientID != "worker-x" {
		t.Fatalf("expected trimmed client id, got %q", cfg.Identity.ClientID)
	}
	if cfg.Signing.Algorithm != "es256" {
		t.Fatalf("expected lowercased algorithm, got %q", cfg.Signing.Algorithm)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased log format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad algorithm",
			mutate: func(c *Config) { c.Signing.Algorithm = "rot13" },
			want:   "signing.algorithm",
		},
		{
			name:   "non-http identity url",
			mutate: func(c *Config) { c.Identity.StageURL = "ftp://auth.example.test" },
			want:   "identity.stage_url",
		},
		{
			name:   "empty client id",
			mutate: func(c *Config) { c.Identity.ClientID = "" },
			want:   "identity.client_id",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
		{
			name:   "binary with spaces",
			mutate: func(c *Config) { c.Tools.PublicBinary = "c2patool --trust" },
			want:   "tools.public_binary",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestIdentityEndpoint(t *testing.T) {
	cfg := Default()
	if url, ok := cfg.IdentityEndpoint("stage"); !ok || url != defaultIdentityStageURL {
		t.Fatalf("expected stage endpoint, got %q ok=%v", url, ok)
	}
	if url, ok := cfg.IdentityEndpoint(" PROD "); !ok || url != defaultIdentityProdURL {
		t.Fatalf("expected prod endpoint, got %q ok=%v", url, ok)
	}
	if _, ok := cfg.IdentityEndpoint("DEV"); ok {
		t.Fatal("expected DEV tier to be rejected")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	expanded, err := ExpandPath("~/sigil-test")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if expanded != filepath.Join(home, "sigil-test") {
		t.Fatalf("expected home-joined path, got %q", expanded)
	}
}
