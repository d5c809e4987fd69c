package propagate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"sigil/internal/c2patool"
	"sigil/internal/config"
	"sigil/internal/provenance"
)

// manifestAdder is the slice of the provenance tool propagation needs.
type manifestAdder interface {
	AddManifest(ctx context.Context, assetPath, manifestPath, parentPath string, params c2patool.SignParams) (map[string]any, error)
}

// Propagator copies a source asset's active manifest onto a rendition.
type Propagator struct {
	adder      manifestAdder
	scratchDir string
	logger     *slog.Logger
}

// New constructs a Propagator writing scratch manifests under the configured
// scratch directory.
func New(cfg *config.Config, adder manifestAdder, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{
		adder:      adder,
		scratchDir: cfg.Paths.ScratchDir,
		logger:     logger,
	}
}

// Apply embeds the source's active manifest into the rendition file. A nil
// result with a nil error means there was nothing to propagate or the tool
// produced nothing; errors are reported for logging but the caller treats
// propagation as best-effort either way.
func (p *Propagator) Apply(ctx context.Context, meta *provenance.Metadata, renditionPath, renditionName string, params c2patool.SignParams) (map[string]any, error) {
	active := meta.ActiveManifest()
	if active == nil {
		return nil, nil
	}

	content, err := json.Marshal(active)
	if err != nil {
		return nil, fmt.Errorf("marshal active manifest: %w", err)
	}

	manifestPath := filepath.Join(p.scratchDir, scratchManifestName(renditionName))
	if err := os.WriteFile(manifestPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch manifest: %w", err)
	}
	if params.CleanUpTmpFiles {
		defer func() {
			// Deletion failure is not worth failing propagation over.
			_ = os.Remove(manifestPath)
		}()
	}

	result, err := p.adder.AddManifest(ctx, renditionPath, manifestPath, "", params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scratchManifestName builds a per-invocation scratch file name. The epoch
// and rendition name keep the layout recognizable; the uuid component keeps
// concurrent invocations sharing a scratch directory from colliding.
func scratchManifestName(renditionName string) string {
	return fmt.Sprintf("%d.%s.%s.manifest.json", time.Now().UnixMilli(), uuid.NewString(), renditionName)
}
