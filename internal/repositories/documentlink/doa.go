package documentlink

import (
	"database/sql"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

type DocumentLinkRow struct {
	PlanListingID sql.NullString   `db:"plan_listing_id"`
	DocType       sql.Null[string] `db:"doc_type"`
	Language      sql.Null[string] `db:"language"`
	Link          sql.Null[string] `db:"link"`
	SnapshotURL   sql.Null[string] `db:"snapshot_url"`
}

func FromDocumentLink(listingID string, link models.DocumentLink) *DocumentLinkRow {
	return &DocumentLinkRow{
		PlanListingID: sql.NullString{String: listingID, Valid: listingID != ""},
		DocType:       models.NonBlank(link.Type).SQL(),
		Language:      models.NonBlank(link.Language).SQL(),
		Link:          link.Link.SQL(),
		SnapshotURL:   link.SnapshotURL.SQL(),
	}
}

func ToDocumentLink(row *DocumentLinkRow) models.DocumentLink {
	return models.DocumentLink{
		Type:        models.Nullable[string]{Null: row.DocType},
		Language:    models.Nullable[string]{Null: row.Language},
		Link:        models.Nullable[string]{Null: row.Link},
		SnapshotURL: models.Nullable[string]{Null: row.SnapshotURL},
	}
}

const (
	documentLinkTable = "document_link"
)

var documentLinkStruct = database.NewStruct(new(DocumentLinkRow))
