package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleCalendar writes artifacts to a Google Calendar.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleCalendar authenticates with a service-account credentials file.
// Extra client options (endpoint, HTTP client) are appended after it.
func NewGoogleCalendar(ctx context.Context, calendarID, credentialsPath string, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if credentialsPath != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsPath), option.WithScopes(gcal.CalendarScope)}, opts...)
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init calendar service: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID}, nil
}

func (g *GoogleCalendar) CreateArtifact(ctx context.Context, a Artifact) (string, error) {
	overrides := make([]*gcal.EventReminder, 0, len(a.Reminders))
	for _, r := range a.Reminders {
		overrides = append(overrides, &gcal.EventReminder{Method: r.Method, Minutes: int64(r.MinutesBefore)})
	}

	event := &gcal.Event{
		Summary:     a.Summary,
		Description: a.Description,
		Location:    a.Location,
		Start:       &gcal.EventDateTime{DateTime: a.Start.Format(time.RFC3339), TimeZone: a.TimeZone},
		End:         &gcal.EventDateTime{DateTime: a.End.Format(time.RFC3339), TimeZone: a.TimeZone},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

// DeleteArtifact treats an already deleted event as success.
func (g *GoogleCalendar) DeleteArtifact(ctx context.Context, id string) error {
	err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	return fmt.Errorf("delete calendar event: %w", err)
}
