package product

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type ProductRepository interface {
	Upsert(ctx context.Context, product models.Product) error
	Get(ctx context.Context, id string) (Product, error)
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

func (r *Repository) Upsert(ctx context.Context, product models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Upsert")
	defer span.End()

	row := FromProduct(product)
	ib := productStruct.InsertInto(productTable, row)
	ib.OverwriteOnConflict([]string{"id"}, overwriteColumns...)

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"product_id": row.ID.V,
		"brand_id":   row.BrandID.V,
	}

	r.logger.WithContext(ctx).WithFields(fields).Debug("Upserting product")
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error upserting product")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting product")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Get")
	defer span.End()

	sb := productStruct.SelectFrom(productTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var row ProductRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, httperror.NewHTTPError(http.StatusNotFound, "product not found")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("product_id", id).Error("error getting product")
		return Product{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting product")
	}

	return ToProduct(&row), nil
}
