// Package job runs reconstructions in the background, one worker per
// submission, and reports each result through a single callback.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"riso-reel/internal/config"
	"riso-reel/internal/logging"
	"riso-reel/internal/pipeline"
)

// ErrOutputLocked is returned when another run is writing the same output.
var ErrOutputLocked = errors.New("output is locked by another run")

// Executor runs one reconstruction.
type Executor interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	Close() error
}

// Factory builds an executor whose logs carry the given logger's attributes.
type Factory func(logger *slog.Logger) (Executor, error)

// PipelineFactory builds pipelines from cfg.
func PipelineFactory(cfg *config.Config) Factory {
	return func(logger *slog.Logger) (Executor, error) {
		p, err := pipeline.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Runner starts jobs.
type Runner struct {
	factory Factory
	logger  *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(factory Factory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{factory: factory, logger: logger}
}

// Job is one submitted run.
type Job struct {
	ID string

	done   chan struct{}
	result pipeline.Result
	err    error
}

// Done is closed once the job has finished and its callback has returned.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its outcome.
func (j *Job) Wait() (pipeline.Result, error) {
	<-j.done
	return j.result, j.err
}

// LockPath is the lock file guarding an output path.
func LockPath(output string) string {
	clean := filepath.Clean(output)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".lock")
}

// Submit starts req on its own goroutine. done, when non-nil, is called
// exactly once with the outcome, including when the run panics.
func (r *Runner) Submit(ctx context.Context, req pipeline.Request, done func(pipeline.Result, error)) *Job {
	j := &Job{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}
	logger := r.logger.With(logging.String(logging.FieldRunID, j.ID))

	go func() {
		var once sync.Once
		finish := func(res pipeline.Result, err error) {
			once.Do(func() {
				j.result, j.err = res, err
				if done != nil {
					done(res, err)
				}
				close(j.done)
			})
		}
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("run panicked", logging.Any("panic", rec))
				finish(pipeline.Result{}, fmt.Errorf("run panicked: %v", rec))
			}
		}()
		finish(r.run(ctx, req, logger))
	}()
	return j
}

func (r *Runner) run(ctx context.Context, req pipeline.Request, logger *slog.Logger) (pipeline.Result, error) {
	started := time.Now()
	log := logging.NewComponentLogger(logger, "job")

	unlock, err := lockOutput(req.Output)
	if err != nil {
		log.Warn("run not started", logging.String("output", req.Output), logging.Error(err))
		return pipeline.Result{}, err
	}
	defer unlock(log)

	exec, err := r.factory(logger)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		if err := exec.Close(); err != nil {
			log.Warn("failed to release pipeline", logging.Error(err))
		}
	}()

	log.Info("run started",
		logging.String("source", req.Source),
		logging.String("output", req.Output))
	res, err := exec.Run(ctx, req)
	if err != nil {
		log.Error("run failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)))
		return res, err
	}
	log.Info("run finished",
		logging.Int("frames", res.Frames),
		logging.Duration("elapsed", time.Since(started)))
	return res, nil
}

// lockOutput takes the output's lock file without waiting.
func lockOutput(output string) (func(*slog.Logger), error) {
	if output == "" {
		return func(*slog.Logger) {}, nil
	}
	path := LockPath(output)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, output)
	}
	return func(log *slog.Logger) {
		_ = os.Remove(path)
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release output lock", logging.Error(err))
		}
	}, nil
}
