package models

// ZipLookup is one candidate utility returned by the provider's ZIP search.
type ZipLookup struct {
	DUNS        Nullable[string] `json:"DUNS"`
	UtilityID   Nullable[int64]  `json:"UtilityID"`
	UtilityName Nullable[string] `json:"UtilityName"`
	State       Nullable[string] `json:"State"`
}

// Key returns the normalized DUNS, or "" when the candidate has none.
func (z ZipLookup) Key() string {
	return NonBlank(z.DUNS).V
}
