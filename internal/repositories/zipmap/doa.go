package zipmap

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/clover/pkg/database"
)

type ZipMappingRow struct {
	ZIP        sql.NullString `db:"zip"`
	DUNS       sql.NullString `db:"duns"`
	LastSeenAt sql.NullTime   `db:"last_seen_at"`
}

func FromMapping(zip, duns string, seenAt time.Time) *ZipMappingRow {
	return &ZipMappingRow{
		ZIP:        sql.NullString{String: zip, Valid: zip != ""},
		DUNS:       sql.NullString{String: duns, Valid: duns != ""},
		LastSeenAt: sql.NullTime{Time: seenAt, Valid: true},
	}
}

const (
	zipMappingTable = "zip_tdsp_map"
)

var zipMappingStruct = database.NewStruct(new(ZipMappingRow))
