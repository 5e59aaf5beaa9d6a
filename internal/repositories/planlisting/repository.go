package planlisting

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type ListingRepository interface {
	Upsert(ctx context.Context, listing Listing) error
	Get(ctx context.Context, id string) (Listing, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert files a listing, replacing every column of an existing one
// including its fetch time and payload.
func (r *Repository) Upsert(ctx context.Context, listing Listing) error {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Upsert")
	defer span.End()

	row := FromListing(listing)
	ib := listingStruct.InsertInto(listingTable, row)
	ib.OverwriteOnConflict([]string{"id"}, "product_id", "tdsp_duns", "grp", "fetched_at", "payload")

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"listing_id": listing.ID,
		"duns":       listing.TDSPDUNS,
		"group":      listing.Group,
	}

	r.logger.WithContext(ctx).WithFields(fields).Debug("Upserting plan listing")
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error upserting plan listing")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting plan listing")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "ListingRepository.Get")
	defer span.End()

	sb := listingStruct.SelectFrom(listingTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row ListingRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Listing{}, httperror.NewHTTPError(http.StatusNotFound, "plan listing not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("listing_id", id).Error("error getting plan listing")
		return Listing{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting plan listing")
	}

	return ToListing(&row), nil
}
