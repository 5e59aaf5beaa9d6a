package product

import (
	"database/sql"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Product is a stored product row.
type Product struct {
	ID                  string
	BrandID             models.Nullable[string]
	Name                models.Nullable[string]
	Term                models.Nullable[int64]
	Family              models.Nullable[string]
	PercentGreen        models.Nullable[float64]
	Headline            models.Nullable[string]
	EarlyTerminationFee models.Nullable[float64]
	Description         models.Nullable[string]
	IsPrePay            models.Nullable[bool]
	IsTimeOfUse         models.Nullable[bool]
}

type ProductRow struct {
	ID                  sql.Null[string]  `db:"id"`
	BrandID             sql.Null[string]  `db:"brand_id"`
	Name                sql.Null[string]  `db:"name"`
	Term                sql.Null[int64]   `db:"term"`
	Family              sql.Null[string]  `db:"family"`
	PercentGreen        sql.Null[float64] `db:"percent_green"`
	Headline            sql.Null[string]  `db:"headline"`
	EarlyTerminationFee sql.Null[float64] `db:"early_termination_fee"`
	Description         sql.Null[string]  `db:"description"`
	IsPrePay            sql.Null[bool]    `db:"is_pre_pay"`
	IsTimeOfUse         sql.Null[bool]    `db:"is_time_of_use"`
}

// FromProduct converts a payload product. The brand id is NULL when the
// product carries no brand.
func FromProduct(product models.Product) *ProductRow {
	row := &ProductRow{
		ID:                  models.NonBlank(product.ID).SQL(),
		Name:                product.Name.SQL(),
		Term:                product.Term.SQL(),
		Family:              product.Family.SQL(),
		PercentGreen:        product.PercentGreen.SQL(),
		Headline:            product.Headline.SQL(),
		EarlyTerminationFee: product.EarlyTerminationFee.SQL(),
		Description:         product.Description.SQL(),
		IsPrePay:            product.IsPrePay.SQL(),
		IsTimeOfUse:         product.IsTimeOfUse.SQL(),
	}
	if product.Brand != nil {
		row.BrandID = models.NonBlank(product.Brand.ID).SQL()
	}
	return row
}

func ToProduct(row *ProductRow) Product {
	return Product{
		ID:                  row.ID.V,
		BrandID:             models.Nullable[string]{Null: row.BrandID},
		Name:                models.Nullable[string]{Null: row.Name},
		Term:                models.Nullable[int64]{Null: row.Term},
		Family:              models.Nullable[string]{Null: row.Family},
		PercentGreen:        models.Nullable[float64]{Null: row.PercentGreen},
		Headline:            models.Nullable[string]{Null: row.Headline},
		EarlyTerminationFee: models.Nullable[float64]{Null: row.EarlyTerminationFee},
		Description:         models.Nullable[string]{Null: row.Description},
		IsPrePay:            models.Nullable[bool]{Null: row.IsPrePay},
		IsTimeOfUse:         models.Nullable[bool]{Null: row.IsTimeOfUse},
	}
}

const (
	productTable = "product"
)

var productStruct = database.NewStruct(new(ProductRow))

var overwriteColumns = []string{
	"brand_id",
	"name",
	"term",
	"family",
	"percent_green",
	"headline",
	"early_termination_fee",
	"description",
	"is_pre_pay",
	"is_time_of_use",
}
