package itest

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

type event struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	CreatedBy      string `json:"createdBy"`
	AttendeesCount int    `json:"attendeesCount"`
	Attending      *bool  `json:"attending"`
}

func TestEventLifecycle(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newTestServer(t, b)
			suffix := uuid.NewString()[:8]
			owner := s.register(t, "owner-"+suffix+"@example.com")
			guest := s.register(t, "guest-"+suffix+"@example.com")

			status, body, hdr := s.doJSON(t, http.MethodPost, "/events", owner.Access, map[string]any{
				"title": "Later " + suffix,
				"date":  "2031-09-01",
			})
			require.Equal(t, http.StatusCreated, status, "body=%s", body)
			requireHeaderPresent(t, hdr, "X-Request-Id")
			later := mustUnmarshal[event](t, body)
			assert.Equal(t, owner.User.ID, later.CreatedBy)

			status, body, _ = s.doJSON(t, http.MethodPost, "/events", owner.Access, map[string]any{
				"title": "Sooner " + suffix,
				"date":  "2031-03-01",
			})
			require.Equal(t, http.StatusCreated, status, "body=%s", body)
			sooner := mustUnmarshal[event](t, body)

			status, body, _ = s.doJSON(t, http.MethodGet, "/events", "", nil)
			require.Equal(t, http.StatusOK, status)
			var order []string
			for _, e := range mustUnmarshal[[]event](t, body) {
				if e.ID == later.ID || e.ID == sooner.ID {
					order = append(order, e.ID)
				}
			}
			assert.Equal(t, []string{sooner.ID, later.ID}, order)

			status, body, _ = s.doJSON(t, http.MethodPost, "/events/"+later.ID+"/attend", guest.Access, nil)
			require.Equal(t, http.StatusOK, status, "body=%s", body)

			status, body, _ = s.doJSON(t, http.MethodGet, "/events/"+later.ID, guest.Access, nil)
			require.Equal(t, http.StatusOK, status)
			got := mustUnmarshal[event](t, body)
			assert.Equal(t, 1, got.AttendeesCount)
			require.NotNil(t, got.Attending)
			assert.True(t, *got.Attending)

			status, body, _ = s.doJSON(t, http.MethodDelete, "/events/"+later.ID, guest.Access, nil)
			requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")

			status, _, _ = s.doJSON(t, http.MethodDelete, "/events/"+later.ID, owner.Access, nil)
			require.Equal(t, http.StatusNoContent, status)

			status, body, _ = s.doJSON(t, http.MethodGet, "/events/"+later.ID, "", nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "EVENT_NOT_FOUND")

			status, body, _ = s.doJSON(t, http.MethodPost, "/events/"+later.ID+"/attend", guest.Access, nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "EVENT_NOT_FOUND")

			assert.Equal(t, []notifier.Kind{
				notifier.KindCreated,
				notifier.KindCreated,
				notifier.KindAttended,
				notifier.KindDeleted,
			}, s.notes.Kinds())
		})
	}
}

func TestConcurrentAttendance(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newTestServer(t, b)
			suffix := uuid.NewString()[:8]
			owner := s.register(t, "host-"+suffix+"@example.com")

			status, body, _ := s.doJSON(t, http.MethodPost, "/events", owner.Access, map[string]any{
				"title": "Crowded",
				"date":  "2032-01-01",
			})
			require.Equal(t, http.StatusCreated, status, "body=%s", body)
			ev := mustUnmarshal[event](t, body)

			const n = 12
			guests := make([]session, n)
			for i := range guests {
				guests[i] = s.register(t, fmt.Sprintf("g%d-%s@example.com", i, suffix))
			}

			var wg sync.WaitGroup
			codes := make([]int, n)
			for i := range guests {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					codes[i], _, _ = s.doJSON(t, http.MethodPost, "/events/"+ev.ID+"/attend", guests[i].Access, nil)
				}(i)
			}
			wg.Wait()
			for i, c := range codes {
				assert.Equal(t, http.StatusOK, c, "guest %d", i)
			}

			// One caller racing itself gets exactly one success.
			dup := make([]int, 6)
			for i := range dup {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					dup[i], _, _ = s.doJSON(t, http.MethodPost, "/events/"+ev.ID+"/attend", owner.Access, nil)
				}(i)
			}
			wg.Wait()
			ok := 0
			for _, c := range dup {
				if c == http.StatusOK {
					ok++
				} else {
					assert.Equal(t, http.StatusConflict, c)
				}
			}
			assert.Equal(t, 1, ok)

			status, body, _ = s.doJSON(t, http.MethodGet, "/events/"+ev.ID, "", nil)
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, n+1, mustUnmarshal[event](t, body).AttendeesCount)
		})
	}
}

func TestAuthFailuresAreUniform(t *testing.T) {
	s := newTestServer(t, backendMemory)

	for _, token := range []string{"", "abc", "a.b.c"} {
		status, body, _ := s.doJSON(t, http.MethodPost, "/events", token, map[string]any{"title": "x", "date": "2030-01-01"})
		requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
	}
}
