package models

import (
	"encoding/json"
)

// PlanOffer is a retail plan offer as returned by the provider's current
// plans endpoint. Nested objects are nil when absent or malformed.
type PlanOffer struct {
	ID             Nullable[string]
	Product        *Product
	TDSP           *TDSPRef
	ExpectedPrices []ExpectedPrice
	DocumentLinks  []DocumentLink

	// Raw is the offer exactly as received.
	Raw json.RawMessage
}

type Product struct {
	ID                  Nullable[string]  `json:"_id"`
	Brand               *Brand            `json:"-"`
	Name                Nullable[string]  `json:"name"`
	Term                Nullable[int64]   `json:"term"`
	Family              Nullable[string]  `json:"family"`
	PercentGreen        Nullable[float64] `json:"percent_green"`
	Headline            Nullable[string]  `json:"headline"`
	EarlyTerminationFee Nullable[float64] `json:"early_termination_fee"`
	Description         Nullable[string]  `json:"description"`
	IsPrePay            Nullable[bool]    `json:"is_pre_pay"`
	IsTimeOfUse         Nullable[bool]    `json:"is_time_of_use"`
}

type Brand struct {
	ID         Nullable[string] `json:"_id"`
	Name       Nullable[string] `json:"name"`
	PUCTNumber Nullable[string] `json:"puct_number"`
	LegalName  Nullable[string] `json:"legal_name"`
}

// TDSPRef is the utility reference embedded in an offer.
type TDSPRef struct {
	ID         Nullable[string] `json:"_id"`
	DUNSNumber Nullable[string] `json:"duns_number"`
	Name       Nullable[string] `json:"name"`
}

type ExpectedPrice struct {
	Usage  Nullable[int64]   `json:"usage"`
	Price  Nullable[float64] `json:"price"`
	Actual Nullable[bool]    `json:"actual"`
	Valid  Nullable[bool]    `json:"valid"`
}

type DocumentLink struct {
	Type        Nullable[string] `json:"type"`
	Language    Nullable[string] `json:"language"`
	Link        Nullable[string] `json:"link"`
	SnapshotURL Nullable[string] `json:"snapshot_url"`
}

type planOfferJSON struct {
	ID             Nullable[string] `json:"_id"`
	Product        json.RawMessage  `json:"product"`
	TDSP           json.RawMessage  `json:"tdsp"`
	ExpectedPrices json.RawMessage  `json:"expected_prices"`
	DocumentLinks  json.RawMessage  `json:"document_links"`
}

// UnmarshalJSON never fails: an offer that is not an object decodes to an
// offer with no id.
func (p *PlanOffer) UnmarshalJSON(data []byte) error {
	*p = PlanOffer{Raw: append(json.RawMessage(nil), data...)}

	var raw planOfferJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	p.ID = raw.ID
	p.Product = decodeObject[Product](raw.Product)
	p.TDSP = decodeObject[TDSPRef](raw.TDSP)
	p.ExpectedPrices = decodeList[ExpectedPrice](raw.ExpectedPrices)
	p.DocumentLinks = decodeList[DocumentLink](raw.DocumentLinks)
	return nil
}

func (p PlanOffer) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(map[string]any{"_id": p.ID})
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var nested struct {
		Brand json.RawMessage `json:"brand"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}

	*p = Product(decoded)
	p.Brand = decodeObject[Brand](nested.Brand)
	return nil
}

// ListingID returns the offer id, unset when missing or blank.
func (p PlanOffer) ListingID() Nullable[string] {
	return NonBlank(p.ID)
}

// BrandInfo returns the brand nested under the product, if any.
func (p PlanOffer) BrandInfo() *Brand {
	if p.Product == nil {
		return nil
	}
	return p.Product.Brand
}

// BrandID returns the brand id, unset when there is no brand.
func (p PlanOffer) BrandID() Nullable[string] {
	if brand := p.BrandInfo(); brand != nil {
		return NonBlank(brand.ID)
	}
	return Nullable[string]{}
}

// ProductID returns the product id, unset when there is no product.
func (p PlanOffer) ProductID() Nullable[string] {
	if p.Product == nil {
		return Nullable[string]{}
	}
	return NonBlank(p.Product.ID)
}

// UtilityName returns the name carried by the offer's utility reference.
func (p PlanOffer) UtilityName() Nullable[string] {
	if p.TDSP == nil {
		return Nullable[string]{}
	}
	return NonBlank(p.TDSP.Name)
}

// ResolveDUNS files the offer under tdsp.duns_number, then tdsp._id, then
// the DUNS it was fetched for.
func (p PlanOffer) ResolveDUNS(fetchedFor string) string {
	if p.TDSP == nil {
		return fetchedFor
	}
	if duns := FirstSet(p.TDSP.DUNSNumber, p.TDSP.ID); duns.Valid {
		return duns.V
	}
	return fetchedFor
}

func decodeObject[T any](raw json.RawMessage) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func decodeList[T any](raw json.RawMessage) []T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	list := make([]T, 0, len(items))
	for _, item := range items {
		if v := decodeObject[T](item); v != nil {
			list = append(list, *v)
		}
	}
	return list
}
