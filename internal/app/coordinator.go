package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/domain"
)

const (
	// CachePrefix namespaces every cached catalog read; a committed run drops them all.
	CachePrefix    = "catalog:"
	LastReportKey  = CachePrefix + "last-report"
	lastReportTTL  = 7 * 24 * 60 * 60
	failurePrefix  = "Failed update: "
	stageFetch     = "fetch"
	stageCommit    = "commit"
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// RunResult summarizes one update run.
type RunResult struct {
	RunID    string
	Inserted int
	Organize OrganizeStats
	Findings Findings
	Report   string
	Duration time.Duration
}

// LastReport is what the coordinator keeps under LastReportKey.
type LastReport struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
	OK         bool      `json:"ok"`
	Text       string    `json:"text"`
}

// UpdateService runs fetch, organize and validate in one transaction and
// notifies the outcome. Runs never overlap.
type UpdateService struct {
	store     domain.CatalogStore
	agg       *Aggregator
	organizer *Organizer
	validator *Validator
	notifier  domain.Notifier
	lock      domain.RunLock
	cache     domain.Cache
	reportLoc *time.Location

	mu sync.Mutex
}

type Option func(*UpdateService)

// WithRunLock adds a cross-process lock on top of the in-process one.
func WithRunLock(l domain.RunLock) Option {
	return func(s *UpdateService) { s.lock = l }
}

// WithCache enables post-commit invalidation and last-report storage.
func WithCache(c domain.Cache) Option {
	return func(s *UpdateService) { s.cache = c }
}

// WithReportLocation sets the zone showtimes are printed in; UTC by default.
func WithReportLocation(loc *time.Location) Option {
	return func(s *UpdateService) { s.reportLoc = loc }
}

func NewUpdateService(store domain.CatalogStore, agg *Aggregator, n domain.Notifier, opts ...Option) *UpdateService {
	s := &UpdateService{
		store:     store,
		agg:       agg,
		organizer: NewOrganizer(),
		validator: NewValidator(),
		notifier:  n,
		reportLoc: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one update. ErrRunInProgress means nothing was attempted; any
// other error means the run was rolled back and a failure was notified.
func (s *UpdateService) Run(ctx context.Context) (RunResult, error) {
	if !s.mu.TryLock() {
		observability.ObserveRun(outcomeSkipped)
		return RunResult{}, domain.ErrRunInProgress
	}
	defer s.mu.Unlock()

	res := RunResult{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx)

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, res.RunID)
		if err != nil {
			return res, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			observability.ObserveRun(outcomeSkipped)
			return res, domain.ErrRunInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), res.RunID); err != nil {
				logger.Warn().Err(err).Msg("release run lock failed")
			}
		}()
	}

	start := time.Now()
	logger.Info().Msg("update started")
	err := s.runTx(ctx, &res)
	res.Duration = time.Since(start)

	if err != nil {
		observability.ObserveRun(outcomeFailed)
		logger.Error().Err(err).Dur("took", res.Duration).Msg("update failed, rolled back")
		s.finish(ctx, res.RunID, false, failurePrefix+err.Error())
		return res, err
	}

	observability.ObserveRun(outcomeOK)
	s.invalidate(ctx)
	logger.Info().
		Int("inserted", res.Inserted).
		Int("invalid_movies", len(res.Findings.Movies)).
		Int("invalid_featured", len(res.Findings.Featured)).
		Dur("took", res.Duration).
		Msg("update committed")
	s.finish(ctx, res.RunID, true, res.Report)
	return res, nil
}

func (s *UpdateService) runTx(ctx context.Context, res *RunResult) (err error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Ctx(ctx).Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	t := time.Now()
	if res.Inserted, err = s.agg.FetchAll(ctx, tx); err != nil {
		return err
	}
	observability.ObserveStage(stageFetch, time.Since(t))

	if res.Organize, err = s.organizer.Organize(ctx, tx); err != nil {
		return err
	}
	if res.Findings, err = s.validator.Validate(ctx, tx); err != nil {
		return err
	}
	res.Report = res.Findings.ReportIn(s.reportLoc)

	t = time.Now()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	observability.ObserveStage(stageCommit, time.Since(t))
	return nil
}

func (s *UpdateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.InvalidatePrefix(ctx, CachePrefix)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("cache invalidation failed")
		return
	}
	log.Ctx(ctx).Debug().Int("keys", n).Msg("catalog cache invalidated")
}

// finish stores and sends the end-of-run text. The notifier is called exactly
// once per attempted run.
func (s *UpdateService) finish(ctx context.Context, runID string, ok bool, text string) {
	ctx = context.WithoutCancel(ctx)
	if s.cache != nil {
		lr := LastReport{RunID: runID, FinishedAt: time.Now().UTC(), OK: ok, Text: text}
		if err := s.cache.Set(ctx, LastReportKey, lr, lastReportTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("store last report failed")
		}
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, text); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("notify failed")
	}
}
