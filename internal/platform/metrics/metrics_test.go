package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{eventId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/events/{eventId}", "404")))
}

func TestObserveChange_AndHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveChange(notifier.KindAttended)
	m.ObserveChange(notifier.KindAttended)
	m.ObserveRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("attended")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `events_api_event_changes_total{kind="attended"} 2`), body)
	assert.Contains(t, body, "events_api_login_rate_limited_total 1")
}
