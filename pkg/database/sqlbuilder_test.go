package database

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type widgetRow struct {
	ID    sql.NullString `db:"id"`
	Name  sql.NullString `db:"name"`
	Owner sql.NullString `db:"owner"`
}

var widgetStruct = NewStruct(new(widgetRow))

func TestOverwriteOnConflict(t *testing.T) {
	ib := widgetStruct.InsertInto("widget", &widgetRow{ID: sql.NullString{String: "w1", Valid: true}})
	ib.OverwriteOnConflict([]string{"id"}, "name", "owner")

	query, args := ib.Build()

	assert.Contains(t, query, "INSERT INTO widget (id, name, owner) VALUES ($1, $2, $3)")
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE")
	assert.Contains(t, query, "name = EXCLUDED.name, owner = EXCLUDED.owner")
	assert.Len(t, args, 3)
}

func TestCoalesceExcluded(t *testing.T) {
	ib := widgetStruct.InsertInto("widget", &widgetRow{})
	ub := ib.OnConflict("id")
	ub.Set(ub.Assign("owner", CoalesceExcluded("widget", "owner")))

	query, args := ib.Build()

	assert.Contains(t, query, "owner = COALESCE(EXCLUDED.owner, widget.owner)")
	assert.Len(t, args, 3)
}

func TestStructSelectFrom(t *testing.T) {
	sb := widgetStruct.SelectFrom("widget")
	sb.Where(sb.Equal("id", "w1"))

	query, args := sb.Build()

	assert.True(t, strings.HasPrefix(query, "SELECT "))
	assert.Contains(t, query, "FROM widget WHERE id = $1")
	assert.Equal(t, []interface{}{"w1"}, args)
}
