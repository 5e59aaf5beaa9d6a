package utility

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Utility is a stored TDSP row.
type Utility struct {
	DUNS        string
	UtilityID   models.Nullable[int64]
	UtilityName models.Nullable[string]
	State       models.Nullable[string]
	LastSeenAt  time.Time
}

type UtilityRow struct {
	DUNS        sql.NullString   `db:"duns"`
	UtilityID   sql.Null[int64]  `db:"utility_id"`
	UtilityName sql.Null[string] `db:"utility_name"`
	State       sql.Null[string] `db:"state"`
	LastSeenAt  sql.NullTime     `db:"last_seen_at"`
}

func FromZipLookup(lookup models.ZipLookup, seenAt time.Time) *UtilityRow {
	return &UtilityRow{
		DUNS:        sql.NullString{String: lookup.Key(), Valid: lookup.Key() != ""},
		UtilityID:   lookup.UtilityID.SQL(),
		UtilityName: lookup.UtilityName.SQL(),
		State:       lookup.State.SQL(),
		LastSeenAt:  sql.NullTime{Time: seenAt, Valid: true},
	}
}

func FromPlan(duns string, name models.Nullable[string], defaultState string, seenAt time.Time) *UtilityRow {
	return &UtilityRow{
		DUNS:        sql.NullString{String: duns, Valid: duns != ""},
		UtilityName: models.NonBlank(name).SQL(),
		State:       sql.Null[string]{V: defaultState, Valid: defaultState != ""},
		LastSeenAt:  sql.NullTime{Time: seenAt, Valid: true},
	}
}

func ToUtility(row *UtilityRow) Utility {
	return Utility{
		DUNS:        row.DUNS.String,
		UtilityID:   models.Nullable[int64]{Null: row.UtilityID},
		UtilityName: models.Nullable[string]{Null: row.UtilityName},
		State:       models.Nullable[string]{Null: row.State},
		LastSeenAt:  row.LastSeenAt.Time,
	}
}

const (
	utilityTable = "tdsp"
)

var utilityStruct = database.NewStruct(new(UtilityRow))
