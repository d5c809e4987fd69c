package provenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sigil/internal/config"
)

// RemoteSigner signs assets over HTTP: a box-size reservation followed by a
// raw-binary sign request. The service embeds the manifest and returns the
// final signed bytes, so the manifest definition never crosses the wire.
type RemoteSigner struct {
	serviceURL string
	httpClient *http.Client
}

// RemoteOption configures a RemoteSigner.
type RemoteOption func(*RemoteSigner)

// WithRemoteHTTPClient overrides the default HTTP client.
func WithRemoteHTTPClient(client *http.Client) RemoteOption {
	return func(s *RemoteSigner) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewRemoteSigner constructs a remote signer from configuration.
func NewRemoteSigner(cfg *config.Config, opts ...RemoteOption) *RemoteSigner {
	timeout := 60 * time.Second
	if cfg.Signing.RequestTimeout > 0 {
		timeout = time.Duration(cfg.Signing.RequestTimeout) * time.Second
	}
	signer := &RemoteSigner{
		serviceURL: cfg.Signing.ServiceURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(signer)
	}
	return signer
}

var _ Signer = (*RemoteSigner)(nil)

// Sign reserves a signing box and submits the asset bytes for signing.
func (s *RemoteSigner) Sign(ctx context.Context, asset Asset, _ ManifestDefinition) ([]byte, error) {
	if len(asset.Data) == 0 {
		return nil, errors.New("asset data required")
	}

	boxSize, err := s.reserveBoxSize(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := s.serviceURL + "/sign?" + url.Values{"boxSize": {strconv.Itoa(boxSize)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(asset.Data))
	if err != nil {
		return nil, fmt.Errorf("build sign request: %w", err)
	}
	if asset.MimeType != "" {
		req.Header.Set("Content-Type", asset.MimeType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sign request: %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), body)
	}

	signed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read signed asset: %w", err)
	}
	if len(signed) == 0 {
		return nil, errors.New("signing service returned empty body")
	}
	return signed, nil
}

func (s *RemoteSigner) reserveBoxSize(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serviceURL+"/box-size", nil)
	if err != nil {
		return 0, fmt.Errorf("build box-size request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("box-size request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("box-size request: %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), body)
	}

	var payload struct {
		BoxSize int `json:"boxSize"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("parse box-size response: %w", err)
	}
	if payload.BoxSize <= 0 {
		return 0, fmt.Errorf("box-size response reported %d", payload.BoxSize)
	}
	return payload.BoxSize, nil
}
