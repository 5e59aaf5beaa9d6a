package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := httpclient.DefaultConfig()
	cfg.UserAgent = "Mozilla/5.0 (compatible; ComparePowerETL/1.0)"
	return NewClient(httpclient.NewClient(cfg, logging.Discard()), Config{
		ZipLookupURL:     server.URL + "/wp-admin/admin-ajax.php",
		PlansURL:         server.URL + "/api/plans/current",
		ZipLookupTimeout: time.Second,
		PlansTimeout:     time.Second,
	}, logging.Discard())
}

func TestResolveZIP(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[{"DUNS":1039940674000,"UtilityID":"7","UtilityName":"Oncor","State":"TX"},{"DUNS":"other"}]`))
	})

	lookup, err := client.ResolveZIP(context.Background(), "75001")
	require.NoError(t, err)

	assert.Equal(t, "/wp-admin/admin-ajax.php", got.URL.Path)
	assert.Equal(t, "search_zipcode", got.URL.Query().Get("action"))
	assert.Equal(t, "75001", got.URL.Query().Get("zipCode"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "Mozilla/5.0 (compatible; ComparePowerETL/1.0)", got.Header.Get("User-Agent"))

	assert.Equal(t, "1039940674000", lookup.Key())
	assert.Equal(t, int64(7), lookup.UtilityID.V)
	assert.Equal(t, "Oncor", lookup.UtilityName.V)
	assert.Equal(t, "TX", lookup.State.V)
}

func TestResolveZIP_NoUtility(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"missing duns", `[{"UtilityName":"Oncor"}]`},
		{"blank duns", `[{"DUNS":"  "}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.ResolveZIP(context.Background(), "00000")
			assert.ErrorIs(t, err, ErrNoUtility)
		})
	}
}

func TestResolveZIP_StatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.ResolveZIP(context.Background(), "75001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoUtility)
	assert.Equal(t, http.StatusServiceUnavailable, httpclient.StatusCode(err))
}

func TestCurrentPlans(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[
			{"_id":"p1","product":{"_id":"prod1","name":"Saver 12","term":12},"tdsp":{"duns_number":"1039940674000","name":"Oncor"}},
			"not an offer"
		]`))
	})

	offers, err := client.CurrentPlans(context.Background(), "1039940674000", "default")
	require.NoError(t, err)

	assert.Equal(t, "/api/plans/current", got.URL.Path)
	assert.Equal(t, "default", got.URL.Query().Get("group"))
	assert.Equal(t, "1039940674000", got.URL.Query().Get("tdsp_duns"))

	require.Len(t, offers, 2)
	assert.Equal(t, "p1", offers[0].ListingID().V)
	assert.Equal(t, "prod1", offers[0].ProductID().V)
	assert.False(t, offers[1].ListingID().Valid)
}

func TestCurrentPlans_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CurrentPlans(context.Background(), "123", "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current plans for 123")
	assert.Equal(t, http.StatusInternalServerError, httpclient.StatusCode(err))
}
