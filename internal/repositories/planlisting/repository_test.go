package planlisting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database/dbtest"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
)

func TestUpsert(t *testing.T) {
	db, mock := dbtest.NewMock(t)
	repo := NewRepository(db, logging.Discard())
	fetchedAt := time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO plan_listing \(id, product_id, tdsp_duns, grp, fetched_at, payload\) .* ` +
		`ON CONFLICT \(id\) DO UPDATE\s+SET product_id = EXCLUDED\.product_id, tdsp_duns = EXCLUDED\.tdsp_duns, ` +
		`grp = EXCLUDED\.grp, fetched_at = EXCLUDED\.fetched_at, payload = EXCLUDED\.payload`).
		WithArgs("p1", nil, "1039940674000", "default", fetchedAt, []byte(`{"_id":"p1"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), Listing{
		ID:        "p1",
		ProductID: models.Of(""),
		TDSPDUNS:  "1039940674000",
		Group:     "default",
		FetchedAt: fetchedAt,
		Payload:   json.RawMessage(`{"_id":"p1"}`),
	})
	require.NoError(t, err)
}

func TestGet(t *testing.T) {
	db, mock := dbtest.NewMock(t)
	repo := NewRepository(db, logging.Discard())
	fetchedAt := time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "product_id", "tdsp_duns", "grp", "fetched_at", "payload"}).
		AddRow("p1", nil, "1039940674000", "default", fetchedAt, []byte(`{"_id":"p1"}`))
	mock.ExpectQuery(`SELECT .* FROM plan_listing WHERE id = \$1`).WithArgs("p1").WillReturnRows(rows)

	listing, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, listing.ProductID.Valid)
	assert.Equal(t, "1039940674000", listing.TDSPDUNS)
	assert.JSONEq(t, `{"_id":"p1"}`, string(listing.Payload))
}
