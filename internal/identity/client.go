package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sigil/internal/config"
)

// Sentinel errors for the token-exchange failure taxonomy.
var (
	// ErrConfiguration covers missing credentials and unknown tiers. It is
	// returned before any network call is made.
	ErrConfiguration = errors.New("identity configuration invalid")
	// ErrCredentialRejected marks the distinguished invalid_client response
	// so callers can tell a bad client secret apart from transient failures.
	ErrCredentialRejected = errors.New("client secret rejected by identity provider")
	// ErrNoResponse covers transport failures where no HTTP response arrived.
	ErrNoResponse = errors.New("no response from identity provider")
)

// rejectedSecretDescription is the provider's error_description for a bad
// client secret on an otherwise well-formed request.
const rejectedSecretDescription = "invalid client_secret parameter"

// ExchangeError describes a non-success token-exchange response.
type ExchangeError struct {
	Status     int
	StatusText string
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %d %s: %s", e.Status, e.StatusText, e.Body)
}

// Credentials are the per-job inputs for a token exchange.
type Credentials struct {
	ClientSecret string
	AccessCode   string
	Tier         string
}

// Client exchanges an authorization code for a bearer access token.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a token-exchange client.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Identity.RequestTimeout > 0 {
		timeout = time.Duration(cfg.Identity.RequestTimeout) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Exchange performs the authorization_code grant against the tier's endpoint
// and returns the access token.
func (c *Client) Exchange(ctx context.Context, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.ClientSecret) == "" {
		return "", fmt.Errorf("%w: client secret required", ErrConfiguration)
	}
	if strings.TrimSpace(creds.AccessCode) == "" {
		return "", fmt.Errorf("%w: access code required", ErrConfiguration)
	}
	tier := strings.TrimSpace(creds.Tier)
	if tier == "" {
		return "", fmt.Errorf("%w: tier required", ErrConfiguration)
	}

	endpoint, ok := c.cfg.IdentityEndpoint(tier)
	if !ok {
		return "", fmt.Errorf("%w: tier must be STAGE or PROD, got %q", ErrConfiguration, tier)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.Identity.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("code", creds.AccessCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusBadRequest {
			var failure struct {
				Error       string `json:"error"`
				Description string `json:"error_description"`
			}
			if json.Unmarshal(body, &failure) == nil &&
				failure.Error == "invalid_client" &&
				strings.EqualFold(strings.TrimSpace(failure.Description), rejectedSecretDescription) {
				return "", fmt.Errorf("%w: %s", ErrCredentialRejected, failure.Description)
			}
		}
		return "", &ExchangeError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	var success struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &success); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if success.AccessToken == "" {
		return "", &ExchangeError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       "response missing access_token",
		}
	}
	return success.AccessToken, nil
}
