package brand

import (
	"database/sql"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

type BrandRow struct {
	ID         sql.Null[string] `db:"id"`
	Name       sql.Null[string] `db:"name"`
	PUCTNumber sql.Null[string] `db:"puct_number"`
	LegalName  sql.Null[string] `db:"legal_name"`
}

func FromBrand(brand models.Brand) *BrandRow {
	return &BrandRow{
		ID:         models.NonBlank(brand.ID).SQL(),
		Name:       brand.Name.SQL(),
		PUCTNumber: brand.PUCTNumber.SQL(),
		LegalName:  brand.LegalName.SQL(),
	}
}

const (
	brandTable = "brand"
)

var brandStruct = database.NewStruct(new(BrandRow))
