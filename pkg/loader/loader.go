// Package loader merges one run's fetched utilities and plan offers into
// the relational store inside a single transaction.
package loader

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/brand"
	"github.com/Ramsey-B/clover/internal/repositories/documentlink"
	"github.com/Ramsey-B/clover/internal/repositories/expectedprice"
	"github.com/Ramsey-B/clover/internal/repositories/planlisting"
	"github.com/Ramsey-B/clover/internal/repositories/product"
	"github.com/Ramsey-B/clover/internal/repositories/utility"
	"github.com/Ramsey-B/clover/internal/repositories/zipmap"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Batch is everything fetched during one run.
type Batch struct {
	// Lookups maps each resolved ZIP to its utility.
	Lookups map[string]models.ZipLookup
	// Plans maps each utility DUNS to the offers fetched for it.
	Plans     map[string][]models.PlanOffer
	Group     string
	FetchedAt time.Time
}

// Result counts the upserts issued per table.
type Result struct {
	Utilities      int `json:"utilities"`
	ZipMappings    int `json:"zip_mappings"`
	Brands         int `json:"brands"`
	Products       int `json:"products"`
	Listings       int `json:"listings"`
	ExpectedPrices int `json:"expected_prices"`
	DocumentLinks  int `json:"document_links"`
	// Skipped counts payload records whose key could not be formed.
	Skipped int `json:"skipped"`
}

type Repositories struct {
	Utilities      utility.UtilityRepository
	ZipMappings    zipmap.ZipMappingRepository
	Brands         brand.BrandRepository
	Products       product.ProductRepository
	Listings       planlisting.ListingRepository
	ExpectedPrices expectedprice.ExpectedPriceRepository
	DocumentLinks  documentlink.DocumentLinkRepository
}

// NewRepositories wires the postgres repositories to db.
func NewRepositories(db database.DB, logger ectologger.Logger, defaultState string) Repositories {
	return Repositories{
		Utilities:      utility.NewRepository(db, logger, defaultState),
		ZipMappings:    zipmap.NewRepository(db, logger),
		Brands:         brand.NewRepository(db, logger),
		Products:       product.NewRepository(db, logger),
		Listings:       planlisting.NewRepository(db, logger),
		ExpectedPrices: expectedprice.NewRepository(db, logger),
		DocumentLinks:  documentlink.NewRepository(db, logger),
	}
}

type Loader struct {
	db     database.DB
	repos  Repositories
	logger ectologger.Logger
}

func NewLoader(db database.DB, repos Repositories, logger ectologger.Logger) *Loader {
	return &Loader{
		db:     db,
		repos:  repos,
		logger: logger,
	}
}

// Load writes the batch. Parents are written before children; nothing is
// committed unless every statement succeeds.
func (l *Loader) Load(ctx context.Context, batch Batch) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Loader.Load")
	defer span.End()

	ctx, tx, err := l.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &Result{}

	if err := l.loadUtilities(ctx, batch, result); err != nil {
		return nil, err
	}

	for _, duns := range sortedKeys(batch.Plans) {
		for _, offer := range batch.Plans[duns] {
			if err := l.loadOffer(ctx, batch, duns, offer, result); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	recordMetrics(result)

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"group":           batch.Group,
		"utilities":       result.Utilities,
		"zip_mappings":    result.ZipMappings,
		"brands":          result.Brands,
		"products":        result.Products,
		"listings":        result.Listings,
		"expected_prices": result.ExpectedPrices,
		"document_links":  result.DocumentLinks,
		"skipped":         result.Skipped,
	}).Info("Committed plan data")

	return result, nil
}

func (l *Loader) loadUtilities(ctx context.Context, batch Batch, result *Result) error {
	for _, zip := range sortedKeys(batch.Lookups) {
		lookup := batch.Lookups[zip]
		duns := lookup.Key()
		if duns == "" {
			l.logger.WithContext(ctx).WithField("zip", zip).Warn("Skipping zip lookup without DUNS")
			result.Skipped++
			continue
		}

		if err := l.repos.Utilities.Upsert(ctx, lookup, batch.FetchedAt); err != nil {
			return err
		}
		result.Utilities++

		if err := l.repos.ZipMappings.Upsert(ctx, zip, duns, batch.FetchedAt); err != nil {
			return err
		}
		result.ZipMappings++
	}
	return nil
}

func (l *Loader) loadOffer(ctx context.Context, batch Batch, fetchedFor string, offer models.PlanOffer, result *Result) error {
	listingID := offer.ListingID()
	if !listingID.Valid {
		l.logger.WithContext(ctx).WithField("duns", fetchedFor).Warn("Skipping plan offer without _id")
		result.Skipped++
		return nil
	}

	if brandInfo := offer.BrandInfo(); brandInfo != nil && offer.BrandID().Valid {
		if err := l.repos.Brands.Upsert(ctx, *brandInfo); err != nil {
			return err
		}
		result.Brands++
	}

	duns := offer.ResolveDUNS(fetchedFor)
	if err := l.repos.Utilities.MergeFromPlan(ctx, duns, offer.UtilityName(), batch.FetchedAt); err != nil {
		return err
	}
	result.Utilities++

	productID := offer.ProductID()
	if productID.Valid {
		if err := l.repos.Products.Upsert(ctx, *offer.Product); err != nil {
			return err
		}
		result.Products++
	}

	err := l.repos.Listings.Upsert(ctx, planlisting.Listing{
		ID:        listingID.V,
		ProductID: productID,
		TDSPDUNS:  duns,
		Group:     batch.Group,
		FetchedAt: batch.FetchedAt,
		Payload:   offer.Raw,
	})
	if err != nil {
		return err
	}
	result.Listings++

	for _, price := range offer.ExpectedPrices {
		if !price.Usage.Valid {
			l.logger.WithContext(ctx).WithField("listing_id", listingID.V).Warn("Skipping expected price without usage")
			result.Skipped++
			continue
		}
		if err := l.repos.ExpectedPrices.Upsert(ctx, listingID.V, price); err != nil {
			return err
		}
		result.ExpectedPrices++
	}

	for _, link := range offer.DocumentLinks {
		if !models.NonBlank(link.Type).Valid || !models.NonBlank(link.Language).Valid {
			l.logger.WithContext(ctx).WithField("listing_id", listingID.V).Warn("Skipping document link without type or language")
			result.Skipped++
			continue
		}
		if err := l.repos.DocumentLinks.Upsert(ctx, listingID.V, link); err != nil {
			return err
		}
		result.DocumentLinks++
	}

	return nil
}

func recordMetrics(result *Result) {
	metrics.RecordRows("tdsp", result.Utilities)
	metrics.RecordRows("zip_tdsp_map", result.ZipMappings)
	metrics.RecordRows("brand", result.Brands)
	metrics.RecordRows("product", result.Products)
	metrics.RecordRows("plan_listing", result.Listings)
	metrics.RecordRows("expected_price", result.ExpectedPrices)
	metrics.RecordRows("document_link", result.DocumentLinks)
	metrics.RecordsSkipped.Add(float64(result.Skipped))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
