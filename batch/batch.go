// Package batch runs forced alignment over many utterances concurrently.
// Each utterance decode is an independent pure computation; the only
// shared state is the read-only vocabulary, so the pool needs no locking
// beyond result collection.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/ieee0824/aligner-go/acoustic"
	"github.com/ieee0824/aligner-go/align"
	"github.com/ieee0824/aligner-go/symbol"
)

// Job is one utterance to align.
type Job struct {
	ID        string
	Posterior *acoustic.Posterior
	Targets   []int // vocabulary indices, blank excluded
}

// Outcome pairs a job with its alignment result or failure. Exactly one
// of Result and Err is set for jobs that were attempted; a cancelled run
// leaves untouched jobs with both nil.
type Outcome struct {
	ID     string
	Result *align.Result
	Err    error
}

// Config holds batch runner parameters.
type Config struct {
	Workers         int                  // 0 = GOMAXPROCS
	ContinueOnError bool                 // log and skip failed utterances instead of aborting
	Extract         align.ExtractOptions // boundary extraction settings
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		Workers:         0,
		ContinueOnError: true,
	}
}

// Runner decodes batches of utterances over a fixed vocabulary.
type Runner struct {
	vocab  *symbol.Vocabulary
	cfg    Config
	logger *zap.SugaredLogger
}

// NewRunner creates a Runner. A nil logger disables logging.
func NewRunner(vocab *symbol.Vocabulary, logger *zap.SugaredLogger, cfg Config) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{vocab: vocab, cfg: cfg, logger: logger}
}

// Run aligns all jobs and returns one outcome per job, in job order.
// With ContinueOnError set, failed utterances are logged and skipped and
// Run returns nil; otherwise the first failure cancels the remaining
// jobs and is returned. Context cancellation abandons scheduled decodes;
// already-computed outcomes are kept.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error

	workers := r.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	r.logger.Infow("batch alignment started", "utterances", len(jobs), "workers", workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if ctx.Err() != nil {
					return
				}
				outcomes[i] = r.alignOne(jobs[i])
				if outcomes[i].Err != nil {
					r.logger.Errorw("alignment failed", "utterance", jobs[i].ID, "error", outcomes[i].Err)
					if !r.cfg.ContinueOnError {
						mu.Lock()
						if firstErr == nil {
							firstErr = fmt.Errorf("utterance %s: %w", jobs[i].ID, outcomes[i].Err)
						}
						mu.Unlock()
						cancel()
						return
					}
					continue
				}
				r.logger.Infow("utterance aligned",
					"utterance", jobs[i].ID,
					"frames", outcomes[i].Result.Frames,
					"segments", len(outcomes[i].Result.Segments),
					"logScore", outcomes[i].Result.LogScore)
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return outcomes, firstErr
	}
	// Internal cancel only happens on the firstErr path, so a cancelled
	// context here means the caller gave up; report it.
	if err := ctx.Err(); err != nil {
		r.logger.Warnw("batch alignment cancelled", "utterances", len(jobs))
		return outcomes, err
	}
	r.logger.Infow("batch alignment finished", "utterances", len(jobs))
	return outcomes, nil
}

func (r *Runner) alignOne(job Job) Outcome {
	result, err := align.Align(job.Posterior, job.Targets, r.vocab, r.cfg.Extract)
	return Outcome{ID: job.ID, Result: result, Err: err}
}
