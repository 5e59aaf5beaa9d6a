package brand

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type BrandRepository interface {
	Upsert(ctx context.Context, brand models.Brand) error
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

func (r *Repository) Upsert(ctx context.Context, brand models.Brand) error {
	ctx, span := tracing.StartSpan(ctx, "BrandRepository.Upsert")
	defer span.End()

	row := FromBrand(brand)
	ib := brandStruct.InsertInto(brandTable, row)
	ib.OverwriteOnConflict([]string{"id"}, "name", "puct_number", "legal_name")

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.logger.WithContext(ctx).WithField("brand_id", row.ID.V).Debug("Upserting brand")
	_, err = tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("brand_id", row.ID.V).Error("error upserting brand")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting brand")
	}

	return tx.Commit(ctx)
}
