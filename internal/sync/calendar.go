// Package sync contains the adapters that mirror confirmed reservations
// into external systems (Google Calendar and Google Sheets). All adapter
// failures are logged and surfaced to the caller, never fatal: the
// booking pipeline treats the external systems as best-effort mirrors of
// the database, which stays the source of truth.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/kkayomi/class-reservation/internal/model"
)

const calendarBaseURL = "https://www.googleapis.com/calendar/v3"

// GoogleCalendar mirrors reservations as calendar events via the
// Calendar REST API. A zero-value client (empty token or calendar ID) is
// disabled and every call returns errDisabled, which callers log and
// move on from.
type GoogleCalendar struct {
	CalendarID string
	Token      string
	HTTPClient *http.Client
	BaseURL    string
}

// NewGoogleCalendar builds a calendar adapter. token or calendarID may
// be empty, in which case the adapter runs disabled.
func NewGoogleCalendar(calendarID, token string) *GoogleCalendar {
	return &GoogleCalendar{
		CalendarID: calendarID,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    calendarBaseURL,
	}
}

var errDisabled = fmt.Errorf("sync adapter disabled")

func (g *GoogleCalendar) enabled() bool { return g.CalendarID != "" && g.Token != "" }

// calendarEventBody is the wire format of a Calendar API event.
type calendarEventBody struct {
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Start       calendarStamp `json:"start"`
	End         calendarStamp `json:"end"`
}

type calendarStamp struct {
	DateTime string `json:"dateTime"`
}

func buildEventBody(ev model.CalendarEvent) calendarEventBody {
	desc := fmt.Sprintf("reservation #%d | %s | %s | %d people",
		ev.ReservationID, ev.CustomerName, ev.CustomerPhone, ev.NumPeople)
	if ev.Memo != nil && *ev.Memo != "" {
		desc += " | " + *ev.Memo
	}
	start := fmt.Sprintf("%sT%s:00", ev.Date, ev.Time)
	dur := time.Duration(ev.DurationMinutes) * time.Minute
	end := start
	if t, err := time.Parse("2006-01-02T15:04:05", start); err == nil {
		end = t.Add(dur).Format("2006-01-02T15:04:05")
	}
	return calendarEventBody{
		Summary:     fmt.Sprintf("[%s] %s", ev.ClassName, ev.CustomerName),
		Description: desc,
		Start:       calendarStamp{DateTime: start},
		End:         calendarStamp{DateTime: end},
	}
}

// CreateEvent inserts a calendar event for a confirmed reservation and
// returns the external event ID.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	if !g.enabled() {
		return "", errDisabled
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events", g.BaseURL, url.PathEscape(g.CalendarID))
	var out struct {
		ID string `json:"id"`
	}
	if err := g.do(ctx, http.MethodPost, endpoint, buildEventBody(ev), &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateEvent rewrites an existing event after a change request moves
// the reservation.
func (g *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, ev model.CalendarEvent) error {
	if !g.enabled() {
		return errDisabled
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		g.BaseURL, url.PathEscape(g.CalendarID), url.PathEscape(eventID))
	return g.do(ctx, http.MethodPut, endpoint, buildEventBody(ev), nil)
}

// DeleteEvent removes the event after a cancellation.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if !g.enabled() {
		return errDisabled
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s",
		g.BaseURL, url.PathEscape(g.CalendarID), url.PathEscape(eventID))
	return g.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (g *GoogleCalendar) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		log.Printf("calendar-sync: %s %s failed: %v", method, endpoint, err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("calendar-sync: %s %s -> %d: %s", method, endpoint, resp.StatusCode, b)
		return fmt.Errorf("calendar api status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
