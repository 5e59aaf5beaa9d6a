package planlisting

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Listing is a plan offer as filed for one utility and group.
type Listing struct {
	ID        string
	ProductID models.Nullable[string]
	TDSPDUNS  string
	Group     string
	FetchedAt time.Time
	Payload   json.RawMessage
}

type ListingRow struct {
	ID        sql.NullString                   `db:"id"`
	ProductID sql.Null[string]                 `db:"product_id"`
	TDSPDUNS  sql.NullString                   `db:"tdsp_duns"`
	Group     sql.NullString                   `db:"grp"`
	FetchedAt sql.NullTime                     `db:"fetched_at"`
	Payload   database.JSONB[json.RawMessage] `db:"payload"`
}

func FromListing(listing Listing) *ListingRow {
	return &ListingRow{
		ID:        sql.NullString{String: listing.ID, Valid: listing.ID != ""},
		ProductID: models.NonBlank(listing.ProductID).SQL(),
		TDSPDUNS:  sql.NullString{String: listing.TDSPDUNS, Valid: listing.TDSPDUNS != ""},
		Group:     sql.NullString{String: listing.Group, Valid: listing.Group != ""},
		FetchedAt: sql.NullTime{Time: listing.FetchedAt, Valid: !listing.FetchedAt.IsZero()},
		Payload:   database.JSONB[json.RawMessage]{Data: listing.Payload},
	}
}

func ToListing(row *ListingRow) Listing {
	return Listing{
		ID:        row.ID.String,
		ProductID: models.Nullable[string]{Null: row.ProductID},
		TDSPDUNS:  row.TDSPDUNS.String,
		Group:     row.Group.String,
		FetchedAt: row.FetchedAt.Time,
		Payload:   row.Payload.GetValue(),
	}
}

const (
	listingTable = "plan_listing"
)

var listingStruct = database.NewStruct(new(ListingRow))
