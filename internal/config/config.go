package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Identity contains token-exchange endpoints and the fixed client identity.
type Identity struct {
	StageURL       string `toml:"stage_url"`
	ProdURL        string `toml:"prod_url"`
	ClientID       string `toml:"client_id"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Signing contains signer credentials and the remote signing service endpoint.
type Signing struct {
	CertificatePath string `toml:"certificate_path"`
	PrivateKeyPath  string `toml:"private_key_path"`
	Algorithm       string `toml:"algorithm"`
	TSAURL          string `toml:"tsa_url"`
	ServiceURL      string `toml:"service_url"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Tools names the provenance CLI binaries.
type Tools struct {
	PublicBinary   string `toml:"public_binary"`
	InternalBinary string `toml:"internal_binary"`
}

// Worker contains per-invocation processing defaults.
type Worker struct {
	DefaultMimeType string `toml:"default_mime_type"`
	Generator       string `toml:"generator"`
}

// Daemon contains queue-processing loop settings.
type Daemon struct {
	PollInterval int `toml:"poll_interval"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sigil.
//
// Configuration sections by subsystem:
//   - Paths: scratch and log directories
//   - Identity: token-exchange endpoints and client id
//   - Signing: local credential files, algorithm, TSA, remote signing service
//   - Tools: public and internal provenance CLI binaries
//   - Worker: MIME default and claim generator id
//   - Daemon: queue polling interval
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Identity Identity `toml:"identity"`
	Signing  Signing  `toml:"signing"`
	Tools    Tools    `toml:"tools"`
	Worker   Worker   `toml:"worker"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sigil/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sigil.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the scratch and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IdentityEndpoint maps a normalized tier to its token-exchange URL.
// The second return reports whether the tier is recognized.
func (c *Config) IdentityEndpoint(tier string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(tier)) {
	case "STAGE":
		return c.Identity.StageURL, true
	case "PROD":
		return c.Identity.ProdURL, true
	default:
		return "", false
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
