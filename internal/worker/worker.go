package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"sigil/internal/c2patool"
	"sigil/internal/config"
	"sigil/internal/fileutil"
	"sigil/internal/identity"
	"sigil/internal/logging"
	"sigil/internal/propagate"
	"sigil/internal/provenance"
)

// ErrSourceCorrupt is the only fatal processing failure: an empty source
// file aborts the invocation without writing a rendition.
var ErrSourceCorrupt = errors.New("source file is empty")

// Source describes the input asset supplied by the caller.
type Source struct {
	Path     string
	Name     string
	MimeType string
}

// Rendition describes the output asset the worker must produce.
type Rendition struct {
	Path         string
	Name         string
	Instructions Instructions
}

type metadataReader interface {
	Read(ctx context.Context, path string) (*provenance.Metadata, error)
}

type manifestPropagator interface {
	Apply(ctx context.Context, meta *provenance.Metadata, renditionPath, renditionName string, params c2patool.SignParams) (map[string]any, error)
}

// Worker orchestrates one rendition invocation: validate, read metadata,
// sign (with copy fallback), and optionally propagate the source manifest.
type Worker struct {
	cfg          *config.Config
	logger       *slog.Logger
	reader       metadataReader
	localSigner  provenance.Signer
	remoteSigner provenance.Signer
	propagator   manifestPropagator
}

// Option overrides a collaborator, primarily for tests.
type Option func(*Worker)

// WithReader overrides the metadata reader.
func WithReader(reader metadataReader) Option {
	return func(w *Worker) {
		if reader != nil {
			w.reader = reader
		}
	}
}

// WithLocalSigner overrides the local signing backend.
func WithLocalSigner(signer provenance.Signer) Option {
	return func(w *Worker) {
		if signer != nil {
			w.localSigner = signer
		}
	}
}

// WithRemoteSigner overrides the remote signing backend.
func WithRemoteSigner(signer provenance.Signer) Option {
	return func(w *Worker) {
		if signer != nil {
			w.remoteSigner = signer
		}
	}
}

// WithPropagator overrides the manifest propagator.
func WithPropagator(propagator manifestPropagator) Option {
	return func(w *Worker) {
		if propagator != nil {
			w.propagator = propagator
		}
	}
}

// New wires a Worker with its default collaborators: the provenance tool
// backed by the identity client, local and remote signers, and the
// propagator.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "worker")

	tool := c2patool.New(cfg, identity.New(cfg), logger)
	w := &Worker{
		cfg:          cfg,
		logger:       logger,
		reader:       provenance.NewReader(cfg, tool),
		localSigner:  provenance.NewLocalSigner(cfg, tool),
		remoteSigner: provenance.NewRemoteSigner(cfg),
		propagator:   propagate.New(cfg, tool, logger),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process runs one invocation. On return with a nil error a rendition file
// exists at rendition.Path: the signed asset, or a verified copy of the
// source when signing failed.
func (w *Worker) Process(ctx context.Context, source Source, rendition Rendition) error {
	info, err := os.Stat(source.Path)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrSourceCorrupt, source.Path)
	}

	mimeType := source.MimeType
	if mimeType == "" {
		mimeType = w.cfg.Worker.DefaultMimeType
	}

	meta, err := w.reader.Read(ctx, source.Path)
	if err != nil {
		w.logger.Warn("reading provenance metadata failed, continuing without",
			"source", source.Path, "error", err)
		meta = nil
	}

	if err := w.sign(ctx, source, rendition, mimeType); err != nil {
		return err
	}

	if rendition.Instructions.AddSourceManifest && meta != nil {
		result, err := w.propagator.Apply(ctx, meta, rendition.Path, rendition.Name, rendition.Instructions.SignParams)
		switch {
		case err != nil:
			w.logger.Warn("manifest propagation failed", "rendition", rendition.Path, "error", err)
		case result == nil:
			w.logger.Info("manifest propagation produced no manifest", "rendition", rendition.Path)
		default:
			w.logger.Info("source manifest propagated", "rendition", rendition.Path)
		}
	}

	return nil
}

// sign writes the rendition: the signed asset when signing succeeds, a
// verified byte-for-byte copy of the source otherwise.
func (w *Worker) sign(ctx context.Context, source Source, rendition Rendition, mimeType string) error {
	signed, err := w.signAsset(ctx, source, rendition, mimeType)
	if err != nil {
		w.logger.Warn("signing failed, copying source to rendition",
			"source", source.Path, "rendition", rendition.Path, "error", err)
		if copyErr := fileutil.CopyFileVerified(source.Path, rendition.Path); copyErr != nil {
			return fmt.Errorf("fallback copy: %w", copyErr)
		}
		return nil
	}

	if err := os.WriteFile(rendition.Path, signed, 0o644); err != nil {
		w.logger.Warn("writing signed rendition failed, copying source instead",
			"rendition", rendition.Path, "error", err)
		if copyErr := fileutil.CopyFileVerified(source.Path, rendition.Path); copyErr != nil {
			return fmt.Errorf("fallback copy: %w", copyErr)
		}
	}
	return nil
}

func (w *Worker) signAsset(ctx context.Context, source Source, rendition Rendition, mimeType string) ([]byte, error) {
	data, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	asset := provenance.Asset{Data: data, MimeType: mimeType}
	manifest := provenance.NewRenditionManifest(w.cfg.Worker.Generator, rendition.Name, mimeType)

	signer := w.localSigner
	if !rendition.Instructions.UseLocalSigner {
		signer = w.remoteSigner
	}
	return signer.Sign(ctx, asset, manifest)
}
