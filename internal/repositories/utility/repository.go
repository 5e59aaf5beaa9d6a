package utility

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type UtilityRepository interface {
	Upsert(ctx context.Context, lookup models.ZipLookup, seenAt time.Time) error
	MergeFromPlan(ctx context.Context, duns string, name models.Nullable[string], seenAt time.Time) error
	Get(ctx context.Context, duns string) (Utility, error)
}

type Repository struct {
	db           database.DB
	logger       ectologger.Logger
	defaultState string
}

// NewRepository creates a new utility repository. defaultState is written
// for utilities first seen through plan data.
func NewRepository(db database.DB, logger ectologger.Logger, defaultState string) *Repository {
	return &Repository{
		db:           db,
		logger:       logger,
		defaultState: defaultState,
	}
}

// Upsert writes a utility resolved from a ZIP lookup. Every column is
// overwritten.
func (r *Repository) Upsert(ctx context.Context, lookup models.ZipLookup, seenAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "UtilityRepository.Upsert")
	defer span.End()

	row := FromZipLookup(lookup, seenAt)
	ib := utilityStruct.InsertInto(utilityTable, row)
	ib.OverwriteOnConflict([]string{"duns"}, "utility_id", "utility_name", "state", "last_seen_at")

	sql, args := ib.Build()

	return r.exec(ctx, "upserting utility", row.DUNS.String, sql, args)
}

// MergeFromPlan records a utility referenced by plan data. A stored name is
// kept when the plan carries none, and the state is only set on insert.
func (r *Repository) MergeFromPlan(ctx context.Context, duns string, name models.Nullable[string], seenAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "UtilityRepository.MergeFromPlan")
	defer span.End()

	row := FromPlan(duns, name, r.defaultState, seenAt)
	ib := utilityStruct.InsertInto(utilityTable, row)
	ub := ib.OnConflict("duns")
	ub.Set(
		ub.Assign("utility_name", database.CoalesceExcluded(utilityTable, "utility_name")),
		ub.Assign("last_seen_at", database.Excluded("last_seen_at")),
	)

	sql, args := ib.Build()

	return r.exec(ctx, "merging utility from plan", duns, sql, args)
}

func (r *Repository) exec(ctx context.Context, action, duns, sql string, args []any) error {
	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.logger.WithContext(ctx).WithField("duns", duns).Debugf("%s", action)
	_, err = tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("duns", duns).Errorf("error %s", action)
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "error %s", action)
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, duns string) (Utility, error) {
	ctx, span := tracing.StartSpan(ctx, "UtilityRepository.Get")
	defer span.End()

	sb := utilityStruct.SelectFrom(utilityTable)
	sb.Where(sb.Equal("duns", duns))

	query, args := sb.Build()

	var row UtilityRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Utility{}, httperror.NewHTTPError(http.StatusNotFound, "utility not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("duns", duns).Error("error getting utility")
		return Utility{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting utility")
	}

	return ToUtility(&row), nil
}
