package c2patool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"sigil/internal/config"
	"sigil/internal/identity"
)

var commandContext = exec.CommandContext

// ErrAuthAttachment marks a failure to obtain the token the internal tool
// needs; it aborts the add-manifest operation before the tool runs.
var ErrAuthAttachment = errors.New("attach auth token")

// SignParams carries the per-job signing and auth options supplied via
// rendition instructions.
type SignParams struct {
	ClientSecret       string
	AccessCode         string
	Tier               string
	UseInternalTooling bool
	CleanUpTmpFiles    bool
}

// TokenSource exchanges job credentials for a bearer token. Satisfied by
// *identity.Client.
type TokenSource interface {
	Exchange(ctx context.Context, creds identity.Credentials) (string, error)
}

// Tool drives the provenance CLI binaries.
type Tool struct {
	tools  config.Tools
	tokens TokenSource
	logger *slog.Logger
}

// New constructs a Tool. The token source may be nil when no job will ever
// request internal tooling.
func New(cfg *config.Config, tokens TokenSource, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{tools: cfg.Tools, tokens: tokens, logger: logger}
}

// Run executes a command and returns its stdout. Failures are hard errors
// carrying trimmed stderr for diagnostics.
func (t *Tool) Run(ctx context.Context, cmd Command) ([]byte, error) {
	proc := commandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", cmd.Binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", cmd.Binary, err)
	}
	return stdout.Bytes(), nil
}

// Execute runs a command and returns its stdout parsed as JSON. Every
// failure mode degrades to nil: execution errors, empty output, and
// non-JSON output. Callers treat nil as "the tool produced no manifest".
func (t *Tool) Execute(ctx context.Context, cmd Command) map[string]any {
	out, err := t.Run(ctx, cmd)
	if err != nil {
		t.logger.Warn("provenance tool failed", "binary", cmd.Binary, "error", err)
		return nil
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		t.logger.Warn("provenance tool output is not JSON", "binary", cmd.Binary, "error", err)
		return nil
	}
	return result
}

// AddManifest embeds the manifest file into the asset, optionally chaining a
// parent asset. When internal tooling is requested, a bearer token is
// exchanged first and attached to the command; failure to obtain it returns
// ErrAuthAttachment. The tool invocation itself is best-effort: a nil result
// with a nil error means the tool produced nothing usable.
func (t *Tool) AddManifest(ctx context.Context, assetPath, manifestPath, parentPath string, params SignParams) (map[string]any, error) {
	cmd := AddManifestCommand(t.tools, assetPath, manifestPath, parentPath, params.UseInternalTooling)

	if params.UseInternalTooling {
		if t.tokens == nil {
			return nil, fmt.Errorf("%w: no token source configured", ErrAuthAttachment)
		}
		token, err := t.tokens.Exchange(ctx, identity.Credentials{
			ClientSecret: params.ClientSecret,
			AccessCode:   params.AccessCode,
			Tier:         params.Tier,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthAttachment, err)
		}
		cmd = cmd.WithAuthToken(token)
	}

	return t.Execute(ctx, cmd), nil
}
