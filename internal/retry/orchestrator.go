// Package retry re-dispatches failed candidate analyses to the worker service.
package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/jonathan/candidate-hub/internal/worker"
)

const (
	// MaxBatchSize caps candidates per call to bound worker fan-out.
	MaxBatchSize = 10
	// DefaultConcurrency bounds concurrent per-candidate job creation.
	DefaultConcurrency = 5
	// DefaultDispatchTimeout bounds one background worker call.
	DefaultDispatchTimeout = 2 * time.Minute
	// compensationTimeout bounds the compensating update after a failed dispatch.
	compensationTimeout = 10 * time.Second
)

// Repository is the storage the orchestrator needs.
type Repository interface {
	FailedCandidates(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]db.Candidate, error)
	ChargedCandidateIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	ReserveCredits(ctx context.Context, userID uuid.UUID, n int) (db.Reservation, error)
	ReleaseCredits(ctx context.Context, userID uuid.UUID, n int) error
	LatestJob(ctx context.Context, candidateID uuid.UUID) (*db.ProcessingJob, error)
	StartRetry(ctx context.Context, p db.NewJobParams) (*db.ProcessingJob, error)
	MarkRetryFailed(ctx context.Context, jobID, candidateID uuid.UUID, reason string) error
}

// Dispatcher hands a job to the analysis worker.
type Dispatcher interface {
	Process(ctx context.Context, req worker.ProcessRequest) error
}

// ItemResult is the synchronous outcome for one candidate. Success means the job was
// created and dispatched, not that analysis completed.
type ItemResult struct {
	CandidateID string `json:"candidateId"`
	Success     bool   `json:"success"`
	JobID       string `json:"jobId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Counts aggregates a batch.
type Counts struct {
	Requested int `json:"requested"`
	Eligible  int `json:"eligible"`
	Skipped   int `json:"skipped"` // requested but not owned or not failed
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Result is the response of a bulk retry.
type Result struct {
	Results []ItemResult `json:"results"`
	Summary Counts       `json:"summary"`
}

// Completion reports the end of one background dispatch.
type Completion struct {
	UserID      uuid.UUID
	CandidateID uuid.UUID
	JobID       uuid.UUID
	Err         error // worker error, nil on success
	Compensated bool  // job and candidate were marked failed
}

// Options configures an Orchestrator.
type Options struct {
	Concurrency     int
	DispatchTimeout time.Duration
	Logger          *zap.Logger
	// OnComplete, if set, is called once per background dispatch after compensation and
	// credit release have run.
	OnComplete func(Completion)
}

// Orchestrator runs bulk retries.
type Orchestrator struct {
	repo       Repository
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// New creates an Orchestrator.
func New(repo Repository, dispatcher Dispatcher, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = DefaultDispatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{repo: repo, dispatcher: dispatcher, opts: opts, logger: logger.Named("retry")}
}

// Retry re-dispatches the caller's failed candidates among ids.
//
// Ids that are not owned by userID or not failed are skipped; if none remain the whole call
// fails with BAD_REQUEST. Credits are reserved for every candidate without a prior usage
// charge before any job is created, so a shortfall rejects the batch with
// INSUFFICIENT_CREDITS and no side effects. Per-candidate failures are reported in the
// result and never abort siblings. Worker calls run in the background; Wait blocks until
// they finish.
func (o *Orchestrator) Retry(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*Result, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("candidateIds must contain at least one id")
	}
	if len(ids) > MaxBatchSize {
		return nil, apperr.Validation(fmt.Sprintf("at most %d candidates can be retried at once", MaxBatchSize))
	}

	candidates, err := o.repo.FailedCandidates(ctx, userID, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load candidates", err)
	}
	if len(candidates) == 0 {
		return nil, apperr.BadRequest("no failed candidates to retry")
	}

	eligibleIDs := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		eligibleIDs[i] = c.ID
	}
	charged, err := o.repo.ChargedCandidateIDs(ctx, userID, eligibleIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to check prior charges", err)
	}

	required := 0
	for _, id := range eligibleIDs {
		if !charged[id] {
			required++
		}
	}

	reservation, err := o.repo.ReserveCredits(ctx, userID, required)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to reserve credits", err)
	}
	if !reservation.Reserved {
		return nil, apperr.InsufficientCredits(required, reservation.Remaining)
	}

	results := make([]ItemResult, len(candidates))
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = o.retryOne(ctx, userID, c, charged[c.ID])
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Results: results,
		Summary: Counts{
			Requested: len(ids),
			Eligible:  len(candidates),
			Skipped:   len(ids) - len(candidates),
		},
	}
	for _, r := range results {
		if r.Success {
			res.Summary.Succeeded++
		} else {
			res.Summary.Failed++
		}
	}

	o.logger.Info("bulk retry dispatched",
		zap.String("user_id", userID.String()),
		zap.Int("requested", res.Summary.Requested),
		zap.Int("eligible", res.Summary.Eligible),
		zap.Int("succeeded", res.Summary.Succeeded),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("credits_reserved", required),
	)
	return res, nil
}

// retryOne creates the new job and starts the background dispatch. Synchronous failures
// release the candidate's reservation immediately.
func (o *Orchestrator) retryOne(ctx context.Context, userID uuid.UUID, c db.Candidate, alreadyCharged bool) ItemResult {
	result := ItemResult{CandidateID: c.ID.String()}
	fail := func(msg string, err error) ItemResult {
		observability.RetryDispatchFailed.Inc()
		o.logger.Warn("retry failed before dispatch",
			zap.String("candidate_id", c.ID.String()),
			zap.String("reason", msg),
			zap.Error(err),
		)
		if !alreadyCharged {
			o.release(context.WithoutCancel(ctx), userID)
		}
		result.Error = msg
		return result
	}

	prev, err := o.repo.LatestJob(ctx, c.ID)
	if err != nil {
		return fail("failed to load previous job", err)
	}
	if prev == nil || prev.FilePath == "" {
		return fail("original file not found", nil)
	}

	mode := prev.AnalysisMode
	if mode == "" {
		mode = db.DefaultAnalysisMode
	}
	job, err := o.repo.StartRetry(ctx, db.NewJobParams{
		UserID:       userID,
		CandidateID:  c.ID,
		FileName:     prev.FileName,
		FilePath:     prev.FilePath,
		FileType:     prev.FileType,
		FileSize:     prev.FileSize,
		AnalysisMode: mode,
	})
	if err != nil {
		return fail("failed to create job", err)
	}

	req := worker.ProcessRequest{
		FileURL:             job.FilePath,
		FileName:            job.FileName,
		UserID:              userID.String(),
		JobID:               job.ID.String(),
		CandidateID:         c.ID.String(),
		Mode:                mode,
		IsRetry:             true,
		SkipCreditDeduction: alreadyCharged,
	}

	o.wg.Add(1)
	go o.dispatch(context.WithoutCancel(ctx), userID, c.ID, job.ID, req, alreadyCharged)

	result.Success = true
	result.JobID = job.ID.String()
	return result
}

// dispatch calls the worker detached from the request. On failure the job and candidate
// are marked failed; no automatic retry is attempted.
func (o *Orchestrator) dispatch(ctx context.Context, userID, candidateID, jobID uuid.UUID, req worker.ProcessRequest, alreadyCharged bool) {
	defer o.wg.Done()

	completion := Completion{UserID: userID, CandidateID: candidateID, JobID: jobID}
	logger := o.logger.With(zap.String("candidate_id", candidateID.String()), zap.String("job_id", jobID.String()))

	callCtx, cancel := context.WithTimeout(ctx, o.opts.DispatchTimeout)
	err := o.dispatcher.Process(callCtx, req)
	cancel()

	if err != nil {
		completion.Err = err
		observability.RetryDispatchFailed.Inc()
		logger.Warn("worker rejected retry", zap.Error(err))

		compCtx, cancel := context.WithTimeout(ctx, compensationTimeout)
		if cerr := o.repo.MarkRetryFailed(compCtx, jobID, candidateID, err.Error()); cerr != nil {
			logger.Error("failed to mark retry failed", zap.Error(cerr))
		} else {
			completion.Compensated = true
			observability.RetryCompensated.Inc()
		}
		cancel()
	} else {
		observability.RetryDispatched.Inc()
		logger.Debug("retry dispatched")
	}

	if !alreadyCharged {
		o.release(ctx, userID)
	}

	if o.opts.OnComplete != nil {
		o.opts.OnComplete(completion)
	}
}

func (o *Orchestrator) release(ctx context.Context, userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, compensationTimeout)
	defer cancel()
	if err := o.repo.ReleaseCredits(ctx, userID, 1); err != nil {
		o.logger.Error("failed to release credit reservation", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// Wait blocks until every background dispatch has completed.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown waits for background dispatches or until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
