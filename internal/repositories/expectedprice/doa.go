package expectedprice

import (
	"database/sql"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

type ExpectedPriceRow struct {
	PlanListingID sql.NullString    `db:"plan_listing_id"`
	Usage         sql.Null[int64]   `db:"usage"`
	Price         sql.Null[float64] `db:"price"`
	Actual        sql.Null[bool]    `db:"actual"`
	Valid         sql.Null[bool]    `db:"valid"`
}

func FromExpectedPrice(listingID string, price models.ExpectedPrice) *ExpectedPriceRow {
	return &ExpectedPriceRow{
		PlanListingID: sql.NullString{String: listingID, Valid: listingID != ""},
		Usage:         price.Usage.SQL(),
		Price:         price.Price.SQL(),
		Actual:        price.Actual.SQL(),
		Valid:         price.Valid.SQL(),
	}
}

func ToExpectedPrice(row *ExpectedPriceRow) models.ExpectedPrice {
	return models.ExpectedPrice{
		Usage:  models.Nullable[int64]{Null: row.Usage},
		Price:  models.Nullable[float64]{Null: row.Price},
		Actual: models.Nullable[bool]{Null: row.Actual},
		Valid:  models.Nullable[bool]{Null: row.Valid},
	}
}

const (
	expectedPriceTable = "expected_price"
)

var expectedPriceStruct = database.NewStruct(new(ExpectedPriceRow))
