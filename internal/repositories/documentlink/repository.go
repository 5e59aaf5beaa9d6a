package documentlink

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type DocumentLinkRepository interface {
	Upsert(ctx context.Context, listingID string, link models.DocumentLink) error
	ListByListing(ctx context.Context, listingID string) ([]models.DocumentLink, error)
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

// Upsert writes one document link, keyed by listing, type and language.
func (r *Repository) Upsert(ctx context.Context, listingID string, link models.DocumentLink) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentLinkRepository.Upsert")
	defer span.End()

	row := FromDocumentLink(listingID, link)
	ib := documentLinkStruct.InsertInto(documentLinkTable, row)
	ib.OverwriteOnConflict([]string{"plan_listing_id", "doc_type", "language"}, "link", "snapshot_url")

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	fields := map[string]any{
		"listing_id": listingID,
		"doc_type":   row.DocType.V,
		"language":   row.Language.V,
	}

	r.logger.WithContext(ctx).WithFields(fields).Debug("Upserting document link")
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(fields).Error("error upserting document link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting document link")
	}

	return tx.Commit(ctx)
}

func (r *Repository) ListByListing(ctx context.Context, listingID string) ([]models.DocumentLink, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentLinkRepository.ListByListing")
	defer span.End()

	sb := documentLinkStruct.SelectFrom(documentLinkTable)
	sb.Where(sb.Equal("plan_listing_id", listingID))
	sb.OrderBy("doc_type", "language").Asc()

	query, args := sb.Build()

	var rows []DocumentLinkRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("listing_id", listingID).Error("error listing document links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing document links")
	}

	links := make([]models.DocumentLink, 0, len(rows))
	for i := range rows {
		links = append(links, ToDocumentLink(&rows[i]))
	}
	return links, nil
}
