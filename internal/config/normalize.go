package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSigning(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeTools()
	c.normalizeWorker()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.StageURL = strings.TrimRight(strings.TrimSpace(c.Identity.StageURL), "/")
	c.Identity.ProdURL = strings.TrimRight(strings.TrimSpace(c.Identity.ProdURL), "/")
	c.Identity.ClientID = strings.TrimSpace(c.Identity.ClientID)
	if c.Identity.RequestTimeout <= 0 {
		c.Identity.RequestTimeout = defaultIdentityTimeout
	}
}

func (c *Config) normalizeSigning() error {
	var err error
	if strings.TrimSpace(c.Signing.CertificatePath) == "" {
		c.Signing.CertificatePath = defaultCertificatePath
	}
	if c.Signing.CertificatePath, err = expandPath(c.Signing.CertificatePath); err != nil {
		return fmt.Errorf("signing.certificate_path: %w", err)
	}
	if strings.TrimSpace(c.Signing.PrivateKeyPath) == "" {
		c.Signing.PrivateKeyPath = defaultPrivateKeyPath
	}
	if c.Signing.PrivateKeyPath, err = expandPath(c.Signing.PrivateKeyPath); err != nil {
		return fmt.Errorf("signing.private_key_path: %w", err)
	}
	c.Signing.Algorithm = strings.ToLower(strings.TrimSpace(c.Signing.Algorithm))
	if c.Signing.Algorithm == "" {
		c.Signing.Algorithm = defaultSigningAlgorithm
	}
	c.Signing.TSAURL = strings.TrimSpace(c.Signing.TSAURL)
	c.Signing.ServiceURL = strings.TrimRight(strings.TrimSpace(c.Signing.ServiceURL), "/")
	if c.Signing.RequestTimeout <= 0 {
		c.Signing.RequestTimeout = defaultSigningTimeout
	}
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.PublicBinary) == "" {
		c.Tools.PublicBinary = defaultPublicBinary
	}
	if strings.TrimSpace(c.Tools.InternalBinary) == "" {
		c.Tools.InternalBinary = defaultInternalBinary
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.DefaultMimeType = strings.TrimSpace(c.Worker.DefaultMimeType)
	if c.Worker.DefaultMimeType == "" {
		c.Worker.DefaultMimeType = defaultMimeType
	}
	c.Worker.Generator = strings.TrimSpace(c.Worker.Generator)
	if c.Worker.Generator == "" {
		c.Worker.Generator = defaultGenerator
	}
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.PollInterval <= 0 {
		c.Daemon.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
