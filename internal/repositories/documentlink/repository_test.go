package documentlink

import (
	"context"
	"testing"

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

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO document_link \(plan_listing_id, doc_type, language, link, snapshot_url\) .* ` +
		`ON CONFLICT \(plan_listing_id, doc_type, language\) DO UPDATE\s+SET link = EXCLUDED\.link, snapshot_url = EXCLUDED\.snapshot_url`).
		WithArgs("p1", "efl", "en", "https://example.com/efl.pdf", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	link := models.DocumentLink{
		Type:     models.Of(" efl "),
		Language: models.Of("en"),
		Link:     models.Of("https://example.com/efl.pdf"),
	}
	require.NoError(t, repo.Upsert(context.Background(), "p1", link))
}

func TestListByListing(t *testing.T) {
	db, mock := dbtest.NewMock(t)
	repo := NewRepository(db, logging.Discard())

	rows := sqlmock.NewRows([]string{"plan_listing_id", "doc_type", "language", "link", "snapshot_url"}).
		AddRow("p1", "efl", "en", "https://example.com/efl.pdf", nil).
		AddRow("p1", "tos", "es", "https://example.com/tos.pdf", "https://example.com/snap.pdf")
	mock.ExpectQuery(`SELECT .* FROM document_link WHERE plan_listing_id = \$1 ORDER BY doc_type, language ASC`).
		WithArgs("p1").WillReturnRows(rows)

	links, err := repo.ListByListing(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "efl", links[0].Type.V)
	assert.False(t, links[0].SnapshotURL.Valid)
	assert.Equal(t, "es", links[1].Language.V)
}
