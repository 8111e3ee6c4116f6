package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMove(t *testing.T) {
	before := testutil.ToFloat64(movesTotal.WithLabelValues(ResultReverted))
	RecordMove(ResultReverted)
	assert.Equal(t, before+1, testutil.ToFloat64(movesTotal.WithLabelValues(ResultReverted)))
}

func TestRecordBulk(t *testing.T) {
	actions := testutil.ToFloat64(bulkActionsTotal.WithLabelValues("tag:vip", ResultPartial))
	failures := testutil.ToFloat64(bulkFailuresTotal)

	RecordBulk("tag:vip", ResultPartial, 2)
	RecordBulk("tag:vip", ResultPartial, 0)

	assert.Equal(t, actions+2, testutil.ToFloat64(bulkActionsTotal.WithLabelValues("tag:vip", ResultPartial)))
	assert.Equal(t, failures+2, testutil.ToFloat64(bulkFailuresTotal))
}

func TestOpenViews(t *testing.T) {
	before := testutil.ToFloat64(openViews)
	ViewOpened()
	assert.Equal(t, before+1, testutil.ToFloat64(openViews))
	ViewClosed()
	assert.Equal(t, before, testutil.ToFloat64(openViews))
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/leads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/leads/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads/abc123", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
