package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Excluded references the value proposed for insertion in an ON CONFLICT clause.
func Excluded(column string) any {
	return sqlbuilder.Raw(fmt.Sprintf("EXCLUDED.%s", column))
}

// CoalesceExcluded keeps the stored value when the proposed one is NULL.
func CoalesceExcluded(table, column string) any {
	return sqlbuilder.Raw(fmt.Sprintf("COALESCE(EXCLUDED.%s, %s.%s)", column, table, column))
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func (b *InsertBuilder) OnConflict(columns ...string) *UpdateBuilder {
	ub := NewUpdateBuilder()
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE %s", strings.Join(columns, ", "), b.Var(ub)))

	return ub
}

// OverwriteOnConflict assigns EXCLUDED values to every listed column.
func (b *InsertBuilder) OverwriteOnConflict(conflict []string, columns ...string) *UpdateBuilder {
	ub := b.OnConflict(conflict...)
	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		assignments = append(assignments, ub.Assign(column, Excluded(column)))
	}
	ub.Set(assignments...)
	return ub
}

type UpdateBuilder struct {
	*sqlbuilder.UpdateBuilder
}

func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{sqlbuilder.PostgreSQL.NewUpdateBuilder()}
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

type Struct struct {
	*sqlbuilder.Struct
}

func (s *Struct) SelectFrom(table string) *SelectBuilder {
	return &SelectBuilder{s.Struct.SelectFrom(table)}
}

func (s *Struct) InsertInto(table string, v ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, v...)}
}

func NewStruct(v any) *Struct {
	builder := sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)
	return &Struct{builder}
}
