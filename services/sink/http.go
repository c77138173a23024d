package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"pogocal/eventworker/internal/event"
	"pogocal/eventworker/logger"
	apperrors "pogocal/eventworker/pkg/errors"
)

// calendarEntry is the wire format the calendar endpoint accepts
type calendarEntry struct {
	Summary     string         `json:"summary"`
	Description string         `json:"description"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Source      calendarSource `json:"source"`
}

type calendarSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// calendarAck is the endpoint's response body
type calendarAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CalendarSink posts events to an HTTP calendar endpoint, one request
// per event, authenticated with a bearer token.
type CalendarSink struct {
	client   *http.Client
	endpoint string
	token    string
	log      *logger.Logger
}

func NewCalendarSink(endpoint, token string, timeout time.Duration) *CalendarSink {
	return &CalendarSink{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		token:    token,
		log:      logger.ForSink(),
	}
}

func (s *CalendarSink) Name() string { return "calendar" }

// Dispatch posts one event. A non-2xx response surfaces as a sink error
// carrying the status code.
func (s *CalendarSink) Dispatch(ctx context.Context, ev event.Event) (*Result, error) {
	entry := calendarEntry{
		Summary:     ev.Title,
		Description: ev.Description + "\n\nFuente: " + ev.SourceURL,
		Start:       ev.StartDate,
		End:         ev.EndDate,
		Source: calendarSource{
			Title: ev.Title,
			URL:   ev.SourceURL,
		},
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, apperrors.NewSink("failed to encode calendar entry", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewSink("failed to create request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.NewSink("calendar request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewSink("calendar rejected event", resp.StatusCode, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewSink("failed to read calendar response", 0, err)
	}

	ack := calendarAck{ID: ev.ID, Status: "created"}
	if len(body) > 0 {
		// Best effort; an unparseable ack still counts as delivered
		if err := json.Unmarshal(body, &ack); err != nil {
			s.log.Warn().Err(err).Str("event", ev.ID).Msg("Unparseable calendar ack")
		}
	}
	if ack.ID == "" {
		ack.ID = ev.ID
	}
	if ack.Status == "" {
		ack.Status = "created"
	}

	s.log.Debug().
		Str("event", ev.ID).
		Str("status", ack.Status).
		Msg("Event delivered to calendar")

	return &Result{ID: ack.ID, Status: ack.Status}, nil
}
