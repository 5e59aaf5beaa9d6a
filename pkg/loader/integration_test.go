package loader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/documentlink"
	"github.com/Ramsey-B/clover/internal/repositories/expectedprice"
	"github.com/Ramsey-B/clover/internal/repositories/planlisting"
	"github.com/Ramsey-B/clover/internal/repositories/product"
	"github.com/Ramsey-B/clover/internal/repositories/utility"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/database/dbtest"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/models"
)

// storedRows is everything persisted for one listing and its utility.
type storedRows struct {
	Utility utility.Utility
	Product product.Product
	Listing planlisting.Listing
	Prices  []models.ExpectedPrice
	Links   []models.DocumentLink
}

func snapshot(t *testing.T, db database.DB, duns, productID, listingID string) storedRows {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()

	var rows storedRows
	var err error

	rows.Utility, err = utility.NewRepository(db, logger, "TX").Get(ctx, duns)
	require.NoError(t, err)
	rows.Product, err = product.NewRepository(db, logger).Get(ctx, productID)
	require.NoError(t, err)
	rows.Listing, err = planlisting.NewRepository(db, logger).Get(ctx, listingID)
	require.NoError(t, err)
	rows.Prices, err = expectedprice.NewRepository(db, logger).ListByListing(ctx, listingID)
	require.NoError(t, err)
	rows.Links, err = documentlink.NewRepository(db, logger).ListByListing(ctx, listingID)
	require.NoError(t, err)

	return rows
}

func TestLoad_Postgres_IdempotentAndCoalesce(t *testing.T) {
	db := dbtest.NewPostgres(t)
	logger := logging.Discard()
	loader := NewLoader(db, NewRepositories(db, logger, "TX"), logger)
	ctx := context.Background()

	// Unique keys keep reruns against a shared database independent.
	suffix := uuid.NewString()[:8]
	duns := "duns-" + suffix
	listingID := "p-" + suffix
	productID := "prod-" + suffix

	offers := decodeOffers(t, fmt.Sprintf(`[{
		"_id": %q,
		"product": {"_id": %q, "name": "Saver 12", "term": 12},
		"tdsp": {"duns_number": %q, "name": ""},
		"expected_prices": [{"usage": 1000, "price": 0.129, "actual": false, "valid": true}],
		"document_links": [{"type": "efl", "language": "en", "link": "https://example.com/efl.pdf"}]
	}]`, listingID, productID, duns))

	batch := Batch{
		Lookups: map[string]models.ZipLookup{
			"z" + suffix[:4]: {
				DUNS:        models.Of(duns),
				UtilityID:   models.Of(int64(7)),
				UtilityName: models.Of("Oncor"),
				State:       models.Of("TX"),
			},
		},
		Plans:     map[string][]models.PlanOffer{duns: offers},
		Group:     "default",
		FetchedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	first, err := loader.Load(ctx, batch)
	require.NoError(t, err)
	afterFirst := snapshot(t, db, duns, productID, listingID)

	second, err := loader.Load(ctx, batch)
	require.NoError(t, err)
	afterSecond := snapshot(t, db, duns, productID, listingID)

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, afterSecond)

	assert.Equal(t, "Oncor", afterSecond.Utility.UtilityName.V, "a blank plan-supplied name must not clear the stored one")
	assert.Equal(t, "TX", afterSecond.Utility.State.V)

	assert.False(t, afterSecond.Product.BrandID.Valid)
	assert.Equal(t, int64(12), afterSecond.Product.Term.V)

	assert.Equal(t, duns, afterSecond.Listing.TDSPDUNS)
	assert.Equal(t, productID, afterSecond.Listing.ProductID.V)
	assert.True(t, batch.FetchedAt.Equal(afterSecond.Listing.FetchedAt))

	require.Len(t, afterSecond.Prices, 1)
	assert.Equal(t, 0.129, afterSecond.Prices[0].Price.V)
	require.Len(t, afterSecond.Links, 1)
	assert.Equal(t, "https://example.com/efl.pdf", afterSecond.Links[0].Link.V)
}

func TestLoad_Postgres_RetainsDroppedChildren(t *testing.T) {
	db := dbtest.NewPostgres(t)
	logger := logging.Discard()
	loader := NewLoader(db, NewRepositories(db, logger, "TX"), logger)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	duns := "duns-" + suffix
	listingID := "p-" + suffix
	productID := "prod-" + suffix

	full := decodeOffers(t, fmt.Sprintf(`[{
		"_id": %q,
		"product": {"_id": %q},
		"tdsp": {"duns_number": %q},
		"expected_prices": [{"usage": 500, "price": 0.151}, {"usage": 1000, "price": 0.129}],
		"document_links": [
			{"type": "efl", "language": "en", "link": "https://example.com/efl.pdf"},
			{"type": "tos", "language": "en", "link": "https://example.com/tos.pdf"}
		]
	}]`, listingID, productID, duns))
	shrunk := decodeOffers(t, fmt.Sprintf(`[{
		"_id": %q,
		"product": {"_id": %q},
		"tdsp": {"duns_number": %q},
		"expected_prices": [{"usage": 1000, "price": 0.119}],
		"document_links": [{"type": "efl", "language": "en", "link": "https://example.com/efl-v2.pdf"}]
	}]`, listingID, productID, duns))

	fetchedAt := time.Now().UTC().Truncate(time.Microsecond)
	_, err := loader.Load(ctx, Batch{Plans: map[string][]models.PlanOffer{duns: full}, Group: "default", FetchedAt: fetchedAt})
	require.NoError(t, err)
	_, err = loader.Load(ctx, Batch{Plans: map[string][]models.PlanOffer{duns: shrunk}, Group: "default", FetchedAt: fetchedAt.Add(time.Hour)})
	require.NoError(t, err)

	rows := snapshot(t, db, duns, productID, listingID)

	require.Len(t, rows.Prices, 2)
	assert.Equal(t, int64(500), rows.Prices[0].Usage.V)
	assert.Equal(t, 0.151, rows.Prices[0].Price.V)
	assert.Equal(t, int64(1000), rows.Prices[1].Usage.V)
	assert.Equal(t, 0.119, rows.Prices[1].Price.V)

	require.Len(t, rows.Links, 2)
	assert.Equal(t, "efl", rows.Links[0].Type.V)
	assert.Equal(t, "https://example.com/efl-v2.pdf", rows.Links[0].Link.V)
	assert.Equal(t, "tos", rows.Links[1].Type.V)
	assert.Equal(t, "https://example.com/tos.pdf", rows.Links[1].Link.V)

	assert.True(t, fetchedAt.Add(time.Hour).Equal(rows.Listing.FetchedAt))
}
