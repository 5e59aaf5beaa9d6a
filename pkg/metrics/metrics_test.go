package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("metrics-test", "failed"))
	RecordRun("metrics-test", false, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("metrics-test", "failed")))
}

func TestRecordRows_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(RowsUpserted.WithLabelValues("metrics_test_table"))
	RecordRows("metrics_test_table", 0)
	RecordRows("metrics_test_table", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(RowsUpserted.WithLabelValues("metrics_test_table")))
}

func TestRecordHTTPRequest_NoResponse(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "error"))
	RecordHTTPRequest("GET", 0, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "error")))
}

func TestPush(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, Push(server.URL, "clover_etl", "default"))
	assert.Equal(t, "/metrics/job/clover_etl/group/default", path)
}
