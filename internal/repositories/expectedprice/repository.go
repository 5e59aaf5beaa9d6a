package expectedprice

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type ExpectedPriceRepository interface {
	Upsert(ctx context.Context, listingID string, price models.ExpectedPrice) error
	ListByListing(ctx context.Context, listingID string) ([]models.ExpectedPrice, error)
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

// Upsert writes one price point, keyed by listing and usage.
func (r *Repository) Upsert(ctx context.Context, listingID string, price models.ExpectedPrice) error {
	ctx, span := tracing.StartSpan(ctx, "ExpectedPriceRepository.Upsert")
	defer span.End()

	row := FromExpectedPrice(listingID, price)
	ib := expectedPriceStruct.InsertInto(expectedPriceTable, row)
	ib.OverwriteOnConflict([]string{"plan_listing_id", "usage"}, "price", "actual", "valid")

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"listing_id": listingID,
		"usage":      row.Usage.V,
	}

	r.logger.WithContext(ctx).WithFields(fields).Debug("Upserting expected price")
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error upserting expected price")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting expected price")
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListByListing(ctx context.Context, listingID string) ([]models.ExpectedPrice, error) {
	ctx, span := tracing.StartSpan(ctx, "ExpectedPriceRepository.ListByListing")
	defer span.End()

	sb := expectedPriceStruct.SelectFrom(expectedPriceTable)
	sb.Where(sb.Equal("plan_listing_id", listingID))
	sb.OrderBy("usage").Asc()

	query, args := sb.Build()

	var rows []ExpectedPriceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("listing_id", listingID).Error("error listing expected prices")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing expected prices")
	}

	prices := make([]models.ExpectedPrice, 0, len(rows))
	for i := range rows {
		prices = append(prices, ToExpectedPrice(&rows[i]))
	}
	return prices, nil
}
