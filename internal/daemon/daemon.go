package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sigil/internal/config"
	"sigil/internal/queue"
	"sigil/internal/worker"
)

// jobProcessor produces a signed rendition for a single job.
type jobProcessor interface {
	Process(ctx context.Context, source worker.Source, rendition worker.Rendition) error
}

// Daemon drains the rendition queue in the background and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	processor jobProcessor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[queue.Status]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, processor jobProcessor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || processor == nil {
		return nil, errors.New("daemon requires config, store, and processor")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "sigild.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		processor: processor,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the polling loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sigil daemon instance is already running")
	}

	reset, err := d.store.ResetProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stale jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("requeued interrupted jobs", "count", reset)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go d.loop(loopCtx)

	d.logger.Info("sigil daemon started",
		"lock", d.lockPath,
		"poll_interval_seconds", d.cfg.Daemon.PollInterval)
	return nil
}

// Stop halts the polling loop and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("sigil daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the polling loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// CurrentStatus aggregates daemon and queue state for diagnostic output.
func (d *Daemon) CurrentStatus(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		QueueStats:   stats,
	}, nil
}

func (d *Daemon) loop(ctx context.Context) {
	defer close(d.done)

	interval := time.Duration(d.cfg.Daemon.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain claims and processes pending jobs until the queue is empty or the
// context is canceled.
func (d *Daemon) drain(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := d.store.ClaimNext(ctx)
		if err != nil {
			d.logger.Error("failed to claim next job", "error", err)
			return
		}
		if job == nil {
			return
		}
		d.processJob(ctx, job)
	}
}

func (d *Daemon) processJob(ctx context.Context, job *queue.Job) {
	logger := d.logger.With("job_id", job.ID, "token", job.Token)
	logger.Info("processing rendition job",
		"source", job.SourcePath,
		"rendition", job.RenditionPath)

	bag, err := job.InstructionBag()
	if err != nil {
		logger.Error("invalid job instructions", "error", err)
		d.finish(ctx, job, err)
		return
	}

	source := worker.Source{
		Path:     job.SourcePath,
		Name:     job.SourceName,
		MimeType: job.SourceMime,
	}
	rendition := worker.Rendition{
		Path:         job.RenditionPath,
		Name:         job.RenditionName,
		Instructions: worker.ResolveInstructions(bag),
	}

	d.finish(ctx, job, d.processor.Process(ctx, source, rendition))
}

func (d *Daemon) finish(ctx context.Context, job *queue.Job, processErr error) {
	if processErr != nil {
		d.logger.Error("rendition job failed", "job_id", job.ID, "error", processErr)
		if err := d.store.MarkFailed(ctx, job.ID, processErr.Error()); err != nil {
			d.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
		}
		return
	}
	if err := d.store.MarkCompleted(ctx, job.ID); err != nil {
		d.logger.Error("failed to record job completion", "job_id", job.ID, "error", err)
		return
	}
	d.logger.Info("rendition job completed", "job_id", job.ID)
}
