package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pogocal/eventworker/internal/event"
	apperrors "pogocal/eventworker/pkg/errors"
)

func sampleEvent() event.Event {
	return event.Event{
		ID:          "a1b2c3d4e5f60718",
		Title:       "Festival de Pokémon GO 2025",
		Description: "Únete al mayor evento del año.",
		StartDate:   time.Date(2025, 7, 29, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 7, 29, 0, 0, 0, 0, time.UTC),
		SourceURL:   "https://pokemongo.com/es/news/go-fest-2025",
		Category:    event.CategoryFestival,
	}
}

func TestCalendarSinkDispatch(t *testing.T) {
	var received calendarEntry
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(calendarAck{ID: "cal-42", Status: "confirmed"})
	}))
	defer srv.Close()

	s := NewCalendarSink(srv.URL, "secreto", 5*time.Second)
	res, err := s.Dispatch(context.Background(), sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "cal-42", res.ID)
	assert.Equal(t, "confirmed", res.Status)
	assert.Equal(t, "Bearer secreto", gotAuth)

	assert.Equal(t, "Festival de Pokémon GO 2025", received.Summary)
	assert.Contains(t, received.Description, "Fuente: https://pokemongo.com/es/news/go-fest-2025")
	assert.Equal(t, time.Date(2025, 7, 29, 0, 0, 0, 0, time.UTC), received.Start)
	assert.Equal(t, "https://pokemongo.com/es/news/go-fest-2025", received.Source.URL)
}

func TestCalendarSinkEmptyAckBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewCalendarSink(srv.URL, "", 5*time.Second)
	res, err := s.Dispatch(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4e5f60718", res.ID)
	assert.Equal(t, "created", res.Status)
}

func TestCalendarSinkRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewCalendarSink(srv.URL, "", 5*time.Second)
	_, err := s.Dispatch(context.Background(), sampleEvent())
	require.Error(t, err)

	assert.Equal(t, apperrors.ErrorTypeSink, apperrors.TypeOf(err))
	var se *apperrors.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
	assert.True(t, se.IsRetryable())
}

func TestDryRunSinkNeverDelivers(t *testing.T) {
	s := NewDryRunSink()
	res, err := s.Dispatch(context.Background(), sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "dry-run", res.Status)
	assert.Equal(t, "dry-run", s.Name())
}
