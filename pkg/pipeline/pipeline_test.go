package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxpkg "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/loader"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/membership"
	"github.com/Ramsey-B/clover/pkg/models"
)

const oncorDUNS = "1039940674000"

type fakeResolver struct {
	lookups map[string]models.ZipLookup
	calls   []string
}

func (f *fakeResolver) ResolveZIP(ctx context.Context, zip string) (models.ZipLookup, error) {
	f.calls = append(f.calls, zip)
	lookup, ok := f.lookups[zip]
	if !ok {
		return models.ZipLookup{}, httperror.NewHTTPError(http.StatusBadGateway, "upstream unavailable")
	}
	return lookup, nil
}

type fakeFetcher struct {
	plans map[string][]models.PlanOffer
	err   error
	calls []string
}

func (f *fakeFetcher) CurrentPlans(ctx context.Context, duns, group string) ([]models.PlanOffer, error) {
	f.calls = append(f.calls, duns+"/"+group)
	if f.err != nil {
		return nil, f.err
	}
	return f.plans[duns], nil
}

type fakeLoader struct {
	batches []loader.Batch
	err     error
}

func (f *fakeLoader) Load(ctx context.Context, batch loader.Batch) (*loader.Result, error) {
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return nil, f.err
	}
	return &loader.Result{Listings: 1}, nil
}

type fakeLocker struct {
	held     bool
	released bool
}

func (f *fakeLocker) AcquireRun(ctx context.Context, group string) (func(context.Context) error, error) {
	if f.held {
		return nil, ErrRunInProgress
	}
	return func(context.Context) error {
		f.released = true
		return nil
	}, nil
}

type fakeEvents struct {
	events  []kafka.RunEventMessage
	ctxErrs []error
}

func (f *fakeEvents) PublishRunEvent(ctx context.Context, evt *kafka.RunEventMessage) error {
	f.events = append(f.events, *evt)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return errors.New("ignored")
}

func oncor() models.ZipLookup {
	return models.ZipLookup{
		DUNS:        models.Of(oncorDUNS),
		UtilityID:   models.Of(int64(7)),
		UtilityName: models.Of("Oncor"),
		State:       models.Of("TX"),
	}
}

func newTestPipeline(resolver ZipResolver, fetcher PlanFetcher, batchLoader BatchLoader) *Pipeline {
	return NewPipeline(resolver, fetcher, batchLoader, Config{Group: "default"}, logging.Discard())
}

func TestRun_EndToEnd(t *testing.T) {
	var offers []models.PlanOffer
	require.NoError(t, json.Unmarshal([]byte(`[{"_id":"p1","product":{"_id":"prod1"}}]`), &offers))

	resolver := &fakeResolver{lookups: map[string]models.ZipLookup{"75001": oncor()}}
	fetcher := &fakeFetcher{plans: map[string][]models.PlanOffer{oncorDUNS: offers}}
	batchLoader := &fakeLoader{}

	summary, err := newTestPipeline(resolver, fetcher, batchLoader).
		Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001"}}))
	require.NoError(t, err)

	assert.Equal(t, []string{oncorDUNS + "/default"}, fetcher.calls)
	require.Len(t, batchLoader.batches, 1)

	batch := batchLoader.batches[0]
	assert.Equal(t, "default", batch.Group)
	assert.Equal(t, oncor(), batch.Lookups["75001"])
	assert.Len(t, batch.Plans[oncorDUNS], 1)
	assert.False(t, batch.FetchedAt.IsZero())

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.ZIPs)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, []string{oncorDUNS}, summary.DUNS)
	assert.Equal(t, 1, summary.Offers)
	assert.Equal(t, 1, summary.Result.Listings)
}

func TestRun_NoUtilitiesIsFatal(t *testing.T) {
	resolver := &fakeResolver{}
	fetcher := &fakeFetcher{}
	batchLoader := &fakeLoader{}

	summary, err := newTestPipeline(resolver, fetcher, batchLoader).
		Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001", "75002"}}))

	assert.ErrorIs(t, err, ErrNoUtilities)
	assert.Nil(t, summary)
	assert.Equal(t, []string{"75001", "75002"}, resolver.calls)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, batchLoader.batches)
}

func TestRun_SkipsFailedZIPs(t *testing.T) {
	resolver := &fakeResolver{lookups: map[string]models.ZipLookup{"77001": oncor(), "75001": oncor()}}
	fetcher := &fakeFetcher{}
	batchLoader := &fakeLoader{}

	summary, err := newTestPipeline(resolver, fetcher, batchLoader).
		Run(context.Background(), membership.New(map[string][]string{
			"dfw":     {"75001", "75002"},
			"houston": {"77001", "75001"},
		}))
	require.NoError(t, err)

	assert.Equal(t, []string{"75001", "75002", "77001"}, resolver.calls)
	assert.Equal(t, []string{"75002"}, summary.FailedZIPs)
	assert.Equal(t, 2, summary.Resolved)
	assert.Equal(t, []string{oncorDUNS}, summary.DUNS)
	assert.Len(t, fetcher.calls, 1)
}

func TestRun_FetchErrorIsFatal(t *testing.T) {
	resolver := &fakeResolver{lookups: map[string]models.ZipLookup{"75001": oncor()}}
	fetcher := &fakeFetcher{err: httperror.NewHTTPError(http.StatusInternalServerError, "boom")}
	batchLoader := &fakeLoader{}

	_, err := newTestPipeline(resolver, fetcher, batchLoader).
		Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001"}}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching plans for DUNS "+oncorDUNS)
	assert.Empty(t, batchLoader.batches)
}

func TestRun_LoadErrorIsFatal(t *testing.T) {
	resolver := &fakeResolver{lookups: map[string]models.ZipLookup{"75001": oncor()}}
	batchLoader := &fakeLoader{err: errors.New("tx aborted")}

	_, err := newTestPipeline(resolver, &fakeFetcher{}, batchLoader).
		Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001"}}))

	assert.ErrorContains(t, err, "tx aborted")
}

func TestRun_LockHeld(t *testing.T) {
	resolver := &fakeResolver{}
	p := newTestPipeline(resolver, &fakeFetcher{}, &fakeLoader{}).WithLocker(&fakeLocker{held: true})

	_, err := p.Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001"}}))

	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, resolver.calls)
}

func TestRun_ReleasesLockAndPublishesEvents(t *testing.T) {
	resolver := &fakeResolver{lookups: map[string]models.ZipLookup{"75001": oncor()}}
	locker := &fakeLocker{}
	events := &fakeEvents{}
	p := newTestPipeline(resolver, &fakeFetcher{}, &fakeLoader{}).WithLocker(locker).WithEvents(events)

	ctx := ctxpkg.SetRunID(context.Background(), "run-42")
	_, err := p.Run(ctx, membership.New(map[string][]string{"dfw": {"75001"}}))
	require.NoError(t, err)

	assert.True(t, locker.released)
	require.Len(t, events.events, 2)
	assert.Equal(t, kafka.EventRunStarted, events.events[0].Type)
	assert.Equal(t, kafka.EventRunCompleted, events.events[1].Type)
	assert.Equal(t, "run-42", events.events[1].RunID)
	assert.Equal(t, 1, events.events[1].Utilities)
}

func TestRun_PublishesFailure(t *testing.T) {
	events := &fakeEvents{}
	p := newTestPipeline(&fakeResolver{}, &fakeFetcher{}, &fakeLoader{}).WithEvents(events)

	_, err := p.Run(context.Background(), membership.New(map[string][]string{"dfw": {"75001"}}))
	require.ErrorIs(t, err, ErrNoUtilities)

	require.Len(t, events.events, 2)
	assert.Equal(t, kafka.EventRunFailed, events.events[1].Type)
	assert.Equal(t, ErrNoUtilities.Error(), events.events[1].Error)
}

func TestRun_Cancelled(t *testing.T) {
	resolver := &fakeResolver{}
	p := NewPipeline(resolver, &fakeFetcher{}, &fakeLoader{}, Config{Group: "default", ZipLookupDelay: 0}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, membership.New(map[string][]string{"dfw": {"75001"}}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, resolver.calls)
}

func TestRun_CancelledStillPublishesFailure(t *testing.T) {
	events := &fakeEvents{}
	p := NewPipeline(&fakeResolver{}, &fakeFetcher{}, &fakeLoader{}, Config{Group: "default"}, logging.Discard()).WithEvents(events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, membership.New(map[string][]string{"dfw": {"75001"}}))
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, events.events, 2)
	last := len(events.events) - 1
	assert.Equal(t, kafka.EventRunFailed, events.events[last].Type)
	assert.NoError(t, events.ctxErrs[last])
}
