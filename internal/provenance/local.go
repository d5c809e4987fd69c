package provenance

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"sigil/internal/c2patool"
	"sigil/internal/config"
)

// LocalSigner signs assets with the file-based certificate and private key
// from configuration, delegating manifest embedding to the public tool.
type LocalSigner struct {
	signing    config.Signing
	tools      config.Tools
	scratchDir string
	runner     commandRunner
}

// NewLocalSigner constructs a local signer.
func NewLocalSigner(cfg *config.Config, runner commandRunner) *LocalSigner {
	return &LocalSigner{
		signing:    cfg.Signing,
		tools:      cfg.Tools,
		scratchDir: cfg.Paths.ScratchDir,
		runner:     runner,
	}
}

var _ Signer = (*LocalSigner)(nil)

// Sign validates the signing credentials, stages the asset and manifest
// definition in the scratch directory, and runs the tool's sign mode. The
// returned bytes are the signed asset.
func (s *LocalSigner) Sign(ctx context.Context, asset Asset, manifest ManifestDefinition) ([]byte, error) {
	if len(asset.Data) == 0 {
		return nil, errors.New("asset data required")
	}

	// The certificate and key load concurrently and are awaited jointly.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return loadCertificate(groupCtx, s.signing.CertificatePath)
	})
	group.Go(func() error {
		return loadPrivateKey(groupCtx, s.signing.PrivateKeyPath)
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	ext := extensionForMime(asset.MimeType)
	assetFile, err := writeScratch(s.scratchDir, "sign-asset-*"+ext, asset.Data)
	if err != nil {
		return nil, fmt.Errorf("stage asset: %w", err)
	}
	defer os.Remove(assetFile)

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest definition: %w", err)
	}
	manifestFile, err := writeScratch(s.scratchDir, "sign-manifest-*.json", manifestJSON)
	if err != nil {
		return nil, fmt.Errorf("stage manifest definition: %w", err)
	}
	defer os.Remove(manifestFile)

	outputFile, err := writeScratch(s.scratchDir, "sign-output-*"+ext, nil)
	if err != nil {
		return nil, fmt.Errorf("stage output: %w", err)
	}
	defer os.Remove(outputFile)

	cmd := c2patool.SignCommand(s.tools, s.signing, assetFile, manifestFile, outputFile)
	if _, err := s.runner.Run(ctx, cmd); err != nil {
		return nil, fmt.Errorf("sign asset: %w", err)
	}

	signed, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("read signed asset: %w", err)
	}
	if len(signed) == 0 {
		return nil, errors.New("sign asset: tool produced empty output")
	}
	return signed, nil
}

func writeScratch(dir, pattern string, data []byte) (string, error) {
	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := file.Name()
	if len(data) > 0 {
		if _, err := file.Write(data); err != nil {
			_ = file.Close()
			_ = os.Remove(name)
			return "", err
		}
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func loadCertificate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}

	found := false
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return fmt.Errorf("parse certificate %q: %w", path, err)
		}
		found = true
	}
	if !found {
		return fmt.Errorf("certificate %q contains no CERTIFICATE block", path)
	}
	return nil
}

func loadPrivateKey(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("private key %q is not PEM encoded", path)
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		_, err = x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		_, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		_, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return fmt.Errorf("private key %q has unsupported PEM type %q", path, block.Type)
	}
	if err != nil {
		return fmt.Errorf("parse private key %q: %w", path, err)
	}
	return nil
}
