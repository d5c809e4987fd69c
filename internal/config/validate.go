package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateSigning(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIdentity() error {
	for field, value := range map[string]string{
		"identity.stage_url": c.Identity.StageURL,
		"identity.prod_url":  c.Identity.ProdURL,
	} {
		if err := validateHTTPURL(field, value); err != nil {
			return err
		}
	}
	if c.Identity.ClientID == "" {
		return fmt.Errorf("identity.client_id must not be empty")
	}
	return nil
}

func (c *Config) validateSigning() error {
	switch c.Signing.Algorithm {
	case "es256", "es384", "es512", "ps256", "ps384", "ps512", "ed25519":
	default:
		return fmt.Errorf("signing.algorithm: unsupported value %q", c.Signing.Algorithm)
	}
	if err := validateHTTPURL("signing.service_url", c.Signing.ServiceURL); err != nil {
		return err
	}
	if c.Signing.TSAURL != "" {
		if err := validateHTTPURL("signing.tsa_url", c.Signing.TSAURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTools() error {
	if strings.ContainsAny(c.Tools.PublicBinary, " \t") {
		return fmt.Errorf("tools.public_binary must be a bare binary name or path, got %q", c.Tools.PublicBinary)
	}
	if strings.ContainsAny(c.Tools.InternalBinary, " \t") {
		return fmt.Errorf("tools.internal_binary must be a bare binary name or path, got %q", c.Tools.InternalBinary)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	return nil
}
