// Package retention implements the retention purge engine: it finds
// soft-deleted projects and tickets whose purge deadline has passed and
// removes them, their dependents and their remote objects, one isolated unit
// of work per record.
package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fixora/tracker/internal/audit"
	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// ErrPurgeAlreadyRunning is returned when a run is requested while another
// run holds the purge lock
var ErrPurgeAlreadyRunning = errors.New("purge run already in progress")

// errCandidateGone marks a candidate restored or purged between scan and lock
var errCandidateGone = errors.New("purge candidate no longer eligible")

// Config contains configuration for the purge engine
type Config struct {
	// Schedule is a standard five-field cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled runs.
	Schedule string

	// BatchSize is the page size of candidate scans
	BatchSize int

	// ObjectAttempts bounds delete attempts per remote object key
	ObjectAttempts int

	// ObjectBackoff is the initial wait between object delete attempts
	ObjectBackoff time.Duration

	// LockName and LockTTL configure the distributed run lock, if any
	LockName string
	LockTTL  time.Duration
}

// DefaultConfig returns the default purge configuration
func DefaultConfig() Config {
	return Config{
		Schedule:       "0 3 * * *",
		BatchSize:      100,
		ObjectAttempts: 3,
		ObjectBackoff:  200 * time.Millisecond,
		LockName:       "fixora:purge",
		LockTTL:        time.Hour,
	}
}

type outcome string

const (
	outcomePurged  outcome = "purged"
	outcomeFailed  outcome = "failed"
	outcomeSkipped outcome = "skipped"

	// outcomeInterrupted marks a record abandoned because the run's context
	// ended. It is neither counted nor audited.
	outcomeInterrupted outcome = "interrupted"
)

// KindReport counts candidates of one entity type processed by a run
type KindReport struct {
	EntityType domain.EntityType `json:"entity_type"`
	Scanned    int               `json:"scanned"`
	Purged     int               `json:"purged"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	FailedIDs  []string          `json:"failed_ids,omitempty"`
}

func (r *KindReport) add(id string, out outcome) {
	switch out {
	case outcomePurged:
		r.Purged++
	case outcomeFailed:
		r.Failed++
		r.FailedIDs = append(r.FailedIDs, id)
	case outcomeSkipped:
		r.Skipped++
	}
}

// Report summarizes one purge run
type Report struct {
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at"`
	Projects        KindReport `json:"projects"`
	Tickets         KindReport `json:"tickets"`
	OrphanedObjects []string   `json:"orphaned_objects,omitempty"`
}

// Option configures optional Purger collaborators
type Option func(*Purger)

// WithRunLock guards runs with a lock shared between processes
func WithRunLock(lock ports.RunLock) Option {
	return func(p *Purger) {
		p.lock = lock
	}
}

// WithMetrics records run outcomes in Prometheus
func WithMetrics(m *Metrics) Option {
	return func(p *Purger) {
		p.metrics = m
	}
}

// Purger is the retention purge engine
type Purger struct {
	uow      ports.UnitOfWork
	kinds    []retainedKind
	objects  *objectDeleter
	audit    *audit.Recorder
	clock    ports.Clock
	lock     ports.RunLock
	metrics  *Metrics
	logger   logger.Logger
	config   Config
	inFlight sync.Mutex
}

// NewPurger creates a new purge engine. scanner supplies the cross-tenant
// candidate scans and must not be bound to a unit of work.
func NewPurger(
	uow ports.UnitOfWork,
	scanner ports.Repositories,
	objects ports.ObjectStore,
	recorder *audit.Recorder,
	clock ports.Clock,
	log logger.Logger,
	config Config,
	opts ...Option,
) *Purger {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.ObjectAttempts <= 0 {
		config.ObjectAttempts = defaults.ObjectAttempts
	}
	if config.ObjectBackoff <= 0 {
		config.ObjectBackoff = defaults.ObjectBackoff
	}
	if config.LockName == "" {
		config.LockName = defaults.LockName
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	log = log.WithFields(map[string]interface{}{"component": "retention"})
	p := &Purger{
		uow:    uow,
		kinds:  []retainedKind{projectKind(scanner.Projects), ticketKind(scanner.Tickets)},
		audit:  recorder,
		clock:  clock,
		logger: log,
		config: config,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.objects = &objectDeleter{
		store:    objects,
		attempts: config.ObjectAttempts,
		interval: config.ObjectBackoff,
		logger:   log,
		metrics:  p.metrics,
	}
	return p
}

// Config returns the effective configuration
func (p *Purger) Config() Config {
	return p.config
}

// RunPurge runs one purge tick: eligible projects first, then standalone
// tickets. Per-record failures are audited and counted, never returned. An
// error is returned only when a run cannot start or a scan fails.
func (p *Purger) RunPurge(ctx context.Context) (*Report, error) {
	if !p.inFlight.TryLock() {
		return nil, ErrPurgeAlreadyRunning
	}
	defer p.inFlight.Unlock()

	if p.lock != nil {
		release, err := p.lock.Acquire(ctx, p.config.LockName, p.config.LockTTL)
		if errors.Is(err, ports.ErrLockHeld) {
			return nil, ErrPurgeAlreadyRunning
		}
		if err != nil {
			return nil, fmt.Errorf("failed to acquire purge lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn(ctx, "Failed to release purge lock", map[string]interface{}{
					"lock":  p.config.LockName,
					"error": err.Error(),
				})
			}
		}()
	}

	started := p.clock.Now()
	wallStart := time.Now()
	report := &Report{
		StartedAt: started,
		Projects:  KindReport{EntityType: domain.EntityTypeProject},
		Tickets:   KindReport{EntityType: domain.EntityTypeTicket},
	}

	p.logger.Info(ctx, "Starting purge run", map[string]interface{}{
		"before":     started,
		"batch_size": p.config.BatchSize,
	})

	purgedProjects := make(map[string]struct{})
	err := p.runKind(ctx, p.kinds[0], started, &report.Projects, report, nil, purgedProjects)
	if err == nil {
		err = p.runKind(ctx, p.kinds[1], started, &report.Tickets, report, purgedProjects, nil)
	}

	report.FinishedAt = p.clock.Now()
	p.metrics.observeRun(time.Since(wallStart), report.FinishedAt, err == nil)

	fields := map[string]interface{}{
		"projects_purged":  report.Projects.Purged,
		"projects_failed":  report.Projects.Failed,
		"projects_skipped": report.Projects.Skipped,
		"tickets_purged":   report.Tickets.Purged,
		"tickets_failed":   report.Tickets.Failed,
		"tickets_skipped":  report.Tickets.Skipped,
		"orphaned_objects": len(report.OrphanedObjects),
	}
	if err != nil {
		p.logger.Error(ctx, "Purge run aborted", err, fields)
		return report, err
	}
	logger.LogPerformance(ctx, p.logger, "purge_run", time.Since(wallStart), fields)
	return report, nil
}

// runKind pages through every eligible candidate of one kind using keyset
// pagination and purges each in its own unit of work
func (p *Purger) runKind(
	ctx context.Context,
	kind retainedKind,
	before time.Time,
	kr *KindReport,
	report *Report,
	coveredParents map[string]struct{},
	purged map[string]struct{},
) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := kind.scan(ctx, before, cursor, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to scan %s purge candidates: %w", kind.entityType, err)
		}

		for _, ref := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			kr.Scanned++
			if _, covered := coveredParents[ref.ParentID]; covered && ref.ParentID != "" {
				kr.add(ref.ID, outcomeSkipped)
				p.metrics.recordOutcome(kind.entityType, outcomeSkipped)
				continue
			}

			out, orphaned := p.purgeOne(ctx, kind, ref, before)
			if out == outcomeInterrupted {
				kr.Scanned--
				return ctx.Err()
			}
			kr.add(ref.ID, out)
			p.metrics.recordOutcome(kind.entityType, out)
			report.OrphanedObjects = append(report.OrphanedObjects, orphaned...)
			if out == outcomePurged && purged != nil {
				purged[ref.ID] = struct{}{}
			}
		}

		if len(page) < p.config.BatchSize {
			return nil
		}
		cursor = page[len(page)-1].ID
	}
}

// purgeOne removes one candidate and its dependents in an isolated unit of
// work and audits the outcome after the unit of work has ended
func (p *Purger) purgeOne(ctx context.Context, kind retainedKind, ref domain.RetainedRef, before time.Time) (outcome, []string) {
	fields := map[string]interface{}{
		"entity_type":     kind.entityType,
		"entity_id":       ref.ID,
		"organization_id": ref.OrganizationID,
	}

	var summary cascadeSummary
	err := p.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		locked, err := kind.lock(ctx, repos, ref.ID, before)
		if err != nil {
			if domain.IsNotFound(err) {
				return errCandidateGone
			}
			return fmt.Errorf("failed to lock candidate: %w", err)
		}

		ticketIDs, err := kind.loadDependents(ctx, repos, *locked)
		if err != nil {
			return fmt.Errorf("failed to load dependents: %w", err)
		}

		summary, err = p.deleteDependents(ctx, repos, locked.OrganizationID, ticketIDs)
		if err != nil {
			return err
		}

		if err := kind.deleteSelf(ctx, repos, *locked); err != nil {
			return fmt.Errorf("failed to delete %s: %w", kind.entityType, err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errCandidateGone):
		p.logger.Debug(ctx, "Purge candidate no longer eligible", fields)
		return outcomeSkipped, nil

	case err != nil && ctx.Err() != nil:
		// The unit of work was rolled back; the record stays eligible.
		p.logger.Warn(ctx, "Purge interrupted", fields)
		return outcomeInterrupted, nil

	case err != nil:
		p.logger.Error(ctx, "Failed to purge record", err, fields)
		p.audit.Record(ctx, audit.Event{
			OrganizationID: ref.OrganizationID,
			Action:         domain.AuditCleanupFailed,
			EntityType:     kind.entityType,
			EntityID:       audit.StringPtr(ref.ID),
			Details: map[string]interface{}{
				"error":       err.Error(),
				"purge_after": ref.PurgeAfter,
			},
		})
		return outcomeFailed, nil
	}

	p.audit.Record(ctx, audit.Event{
		OrganizationID: ref.OrganizationID,
		Action:         kind.action,
		EntityType:     kind.entityType,
		EntityID:       audit.StringPtr(ref.ID),
		Details:        summary,
	})
	fields["tickets"] = summary.Tickets
	fields["object_keys"] = summary.ObjectKeys
	p.logger.Info(ctx, "Purged record", fields)
	return outcomePurged, summary.OrphanedObjects
}
