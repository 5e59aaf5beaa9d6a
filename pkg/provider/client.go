// Package provider talks to the plan pricing provider: the ZIP to utility
// lookup and the current plans listing.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrNoUtility is returned when a ZIP lookup yields no utility with a DUNS.
var ErrNoUtility = errors.New("no utility returned for zip")

type Config struct {
	ZipLookupURL     string
	PlansURL         string
	ZipLookupTimeout time.Duration
	PlansTimeout     time.Duration
}

type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

func NewClient(http *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		http:   http,
		config: config,
		logger: logger,
	}
}

// ResolveZIP returns the first utility serving zip.
func (c *Client) ResolveZIP(ctx context.Context, zip string) (models.ZipLookup, error) {
	ctx, span := tracing.StartSpan(ctx, "ProviderClient.ResolveZIP")
	defer span.End()

	query := url.Values{
		"action":  {"search_zipcode"},
		"zipCode": {zip},
	}

	var candidates []models.ZipLookup
	if err := c.http.GetJSON(ctx, c.config.ZipLookupURL, query, c.config.ZipLookupTimeout, &candidates); err != nil {
		return models.ZipLookup{}, fmt.Errorf("zip lookup %s: %w", zip, err)
	}

	if len(candidates) == 0 || candidates[0].Key() == "" {
		return models.ZipLookup{}, fmt.Errorf("zip lookup %s: %w", zip, ErrNoUtility)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"zip":  zip,
		"duns": candidates[0].Key(),
	}).Debug("Resolved zip")

	return candidates[0], nil
}

// CurrentPlans returns every current plan offer for the utility and group.
func (c *Client) CurrentPlans(ctx context.Context, duns, group string) ([]models.PlanOffer, error) {
	ctx, span := tracing.StartSpan(ctx, "ProviderClient.CurrentPlans")
	defer span.End()

	query := url.Values{
		"group":     {group},
		"tdsp_duns": {duns},
	}

	var offers []models.PlanOffer
	if err := c.http.GetJSON(ctx, c.config.PlansURL, query, c.config.PlansTimeout, &offers); err != nil {
		return nil, fmt.Errorf("current plans for %s: %w", duns, err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"duns":   duns,
		"group":  group,
		"offers": len(offers),
	}).Debug("Fetched current plans")

	return offers, nil
}
