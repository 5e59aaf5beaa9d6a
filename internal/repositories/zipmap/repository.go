package zipmap

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type ZipMappingRepository interface {
	Upsert(ctx context.Context, zip, duns string, seenAt time.Time) error
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

// Upsert maps zip to the utility last seen serving it.
func (r *Repository) Upsert(ctx context.Context, zip, duns string, seenAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ZipMappingRepository.Upsert")
	defer span.End()

	row := FromMapping(zip, duns, seenAt)
	ib := zipMappingStruct.InsertInto(zipMappingTable, row)
	ib.OverwriteOnConflict([]string{"zip"}, "duns", "last_seen_at")

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"zip":  zip,
		"duns": duns,
	}

	r.logger.WithContext(ctx).WithFields(fields).Debug("Upserting zip mapping")
	_, err = tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error upserting zip mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting zip mapping")
	}

	return tx.Commit(ctx)
}
