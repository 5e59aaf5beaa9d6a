// Package pipeline drives one plan sync run: resolve the member ZIPs to
// utilities, fetch each utility's current plans, then load everything in
// one transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	ctxpkg "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/loader"
	"github.com/Ramsey-B/clover/pkg/membership"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/ratelimit"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// ErrNoUtilities is returned when no member ZIP resolved to a utility.
	ErrNoUtilities = errors.New("no utility DUNS resolved from the membership ZIPs")
	// ErrRunInProgress is returned when another run holds the group's lock.
	ErrRunInProgress = errors.New("a run for this group is already in progress")
)

type ZipResolver interface {
	ResolveZIP(ctx context.Context, zip string) (models.ZipLookup, error)
}

type PlanFetcher interface {
	CurrentPlans(ctx context.Context, duns, group string) ([]models.PlanOffer, error)
}

type BatchLoader interface {
	Load(ctx context.Context, batch loader.Batch) (*loader.Result, error)
}

// RunLocker keeps two runs for the same group from overlapping. AcquireRun
// returns ErrRunInProgress when the lock is held elsewhere.
type RunLocker interface {
	AcquireRun(ctx context.Context, group string) (release func(context.Context) error, err error)
}

type EventPublisher interface {
	PublishRunEvent(ctx context.Context, evt *kafka.RunEventMessage) error
}

type Config struct {
	Group          string
	ZipLookupDelay time.Duration
	PlansDelay     time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Group      string         `json:"group"`
	ZIPs       int            `json:"zips"`
	Resolved   int            `json:"resolved"`
	FailedZIPs []string       `json:"failed_zips,omitempty"`
	DUNS       []string       `json:"duns"`
	Offers     int            `json:"offers"`
	Result     *loader.Result `json:"result,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

type Pipeline struct {
	resolver ZipResolver
	fetcher  PlanFetcher
	loader   BatchLoader
	locker   RunLocker
	events   EventPublisher
	config   Config
	logger   ectologger.Logger
	now      func() time.Time
}

func NewPipeline(resolver ZipResolver, fetcher PlanFetcher, batchLoader BatchLoader, config Config, logger ectologger.Logger) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		fetcher:  fetcher,
		loader:   batchLoader,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithLocker guards runs with a distributed lock.
func (p *Pipeline) WithLocker(locker RunLocker) *Pipeline {
	p.locker = locker
	return p
}

// WithEvents publishes run lifecycle events.
func (p *Pipeline) WithEvents(events EventPublisher) *Pipeline {
	p.events = events
	return p
}

// Run performs one full sync for the configured group over the member ZIPs.
func (p *Pipeline) Run(ctx context.Context, members membership.Membership) (*Summary, error) {
	runID := ctxpkg.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = ctxpkg.SetRunID(ctx, runID)
	}
	ctx = ctxpkg.SetGroup(ctx, p.config.Group)

	ctx, span := tracing.StartSpan(ctx, "Pipeline.Run")
	defer span.End()

	logger := p.logger.WithContext(ctx).WithFields(ctxpkg.Fields(ctx))
	start := p.now()

	if p.locker != nil {
		release, err := p.locker.AcquireRun(ctx, p.config.Group)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	p.publish(ctx, &kafka.RunEventMessage{Type: kafka.EventRunStarted, RunID: runID, Group: p.config.Group})

	summary, err := p.run(ctx, members, &Summary{RunID: runID, Group: p.config.Group})
	summary.Duration = p.now().Sub(start)
	metrics.RecordRun(p.config.Group, err == nil, summary.Duration)

	evt := &kafka.RunEventMessage{
		Type:         kafka.EventRunCompleted,
		RunID:        runID,
		Group:        p.config.Group,
		ZIPs:         summary.ZIPs,
		ResolvedZIPs: summary.Resolved,
		Utilities:    len(summary.DUNS),
		Offers:       summary.Offers,
		DurationMs:   summary.Duration.Milliseconds(),
	}
	// Terminal events still go out after a shutdown signal.
	eventCtx := context.WithoutCancel(ctx)
	if err != nil {
		evt.Type = kafka.EventRunFailed
		evt.Error = err.Error()
		p.publish(eventCtx, evt)
		return nil, err
	}
	p.publish(eventCtx, evt)

	logger.WithFields(map[string]any{
		"zips":        summary.ZIPs,
		"resolved":    summary.Resolved,
		"failed_zips": len(summary.FailedZIPs),
		"utilities":   len(summary.DUNS),
		"offers":      summary.Offers,
		"duration":    summary.Duration.String(),
	}).Info("Plan sync run completed")

	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, members membership.Membership, summary *Summary) (*Summary, error) {
	logger := p.logger.WithContext(ctx).WithFields(ctxpkg.Fields(ctx))

	zips := members.ZIPs()
	summary.ZIPs = len(zips)
	logger.Infof("ZIPs: %d group=%s", len(zips), p.config.Group)

	lookups, dunsSet, err := p.resolveZIPs(ctx, zips, summary)
	if err != nil {
		return summary, err
	}
	if len(dunsSet) == 0 {
		return summary, ErrNoUtilities
	}

	summary.DUNS = make([]string, 0, len(dunsSet))
	for duns := range dunsSet {
		summary.DUNS = append(summary.DUNS, duns)
	}
	sort.Strings(summary.DUNS)
	logger.Infof("Unique DUNS: %d", len(summary.DUNS))

	plans, err := p.fetchPlans(ctx, summary)
	if err != nil {
		return summary, err
	}

	result, err := p.loader.Load(ctx, loader.Batch{
		Lookups:   lookups,
		Plans:     plans,
		Group:     p.config.Group,
		FetchedAt: p.now().UTC(),
	})
	if err != nil {
		return summary, fmt.Errorf("loading plan data: %w", err)
	}
	summary.Result = result

	return summary, nil
}

func (p *Pipeline) resolveZIPs(ctx context.Context, zips []string, summary *Summary) (map[string]models.ZipLookup, map[string]struct{}, error) {
	pacer := ratelimit.NewPacer(p.config.ZipLookupDelay)
	lookups := make(map[string]models.ZipLookup, len(zips))
	dunsSet := make(map[string]struct{})

	for _, zip := range zips {
		if err := pacer.Wait(ctx); err != nil {
			return nil, nil, err
		}

		zipCtx := ctxpkg.SetZIP(ctx, zip)
		lookup, err := p.resolver.ResolveZIP(zipCtx, zip)
		if err != nil {
			fields := ctxpkg.Fields(zipCtx)
			if status := httpclient.StatusCode(err); status != 0 {
				fields["status_code"] = status
			}
			p.logger.WithContext(zipCtx).WithError(err).WithFields(fields).Warnf("ZIP lookup failed %s", zip)
			summary.FailedZIPs = append(summary.FailedZIPs, zip)
			metrics.RecordZipLookup(false)
			continue
		}

		metrics.RecordZipLookup(true)
		lookups[zip] = lookup
		dunsSet[lookup.Key()] = struct{}{}
		summary.Resolved++
	}

	return lookups, dunsSet, nil
}

func (p *Pipeline) fetchPlans(ctx context.Context, summary *Summary) (map[string][]models.PlanOffer, error) {
	pacer := ratelimit.NewPacer(p.config.PlansDelay)
	plans := make(map[string][]models.PlanOffer, len(summary.DUNS))

	for _, duns := range summary.DUNS {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		dunsCtx := ctxpkg.SetDUNS(ctx, duns)
		offers, err := p.fetcher.CurrentPlans(dunsCtx, duns, p.config.Group)
		if err != nil {
			return nil, fmt.Errorf("fetching plans for DUNS %s: %w", duns, err)
		}

		plans[duns] = offers
		summary.Offers += len(offers)
		metrics.PlanOffersFetched.WithLabelValues(duns).Add(float64(len(offers)))
		p.logger.WithContext(dunsCtx).WithFields(ctxpkg.Fields(dunsCtx)).Infof("DUNS %s: %d plans", duns, len(offers))
	}

	return plans, nil
}

func (p *Pipeline) publish(ctx context.Context, evt *kafka.RunEventMessage) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishRunEvent(ctx, evt); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warnf("Failed to publish %s event", evt.Type)
	}
}
