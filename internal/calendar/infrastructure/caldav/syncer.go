package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	calendarApp "github.com/felixgeelhaar/cadence/internal/calendar/application"
	"github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/calendar/infrastructure/ical"
	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Common CalDAV server URLs
const (
	AppleCalDAVURL    = "https://caldav.icloud.com"
	FastmailCalDAVURL = "https://caldav.fastmail.com"
)

// PropXCadence marks calendar objects written by the syncer.
const PropXCadence = "X-CADENCE"

// ErrCircuitOpen is returned while the breaker rejects calls to the server.
var ErrCircuitOpen = errors.New("caldav: circuit open")

// Client is the part of *caldav.Client the syncer uses.
type Client interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]caldav.Calendar, error)
	GetCalendarObject(ctx context.Context, path string) (*caldav.CalendarObject, error)
	PutCalendarObject(ctx context.Context, path string, cal *goical.Calendar) (*caldav.CalendarObject, error)
	QueryCalendar(ctx context.Context, calendar string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
	RemoveAll(ctx context.Context, path string) error
}

// BreakerConfig configures the circuit breaker around server calls.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state.
	Interval time.Duration
	// Timeout is the period of the open state.
	Timeout time.Duration
	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

var _ calendarApp.RemoteCalendar = (*Syncer)(nil)

// Syncer pushes events to a CalDAV calendar (Apple Calendar, Fastmail,
// Nextcloud, etc.) and pulls events from it.
type Syncer struct {
	baseURL       string
	username      string
	password      string // App-specific password for Apple
	calendarPath  string // Specific calendar path, or empty for default
	logger        *slog.Logger
	metrics       observability.Metrics
	deleteMissing bool
	client        Client
	breaker       *gobreaker.CircuitBreaker[any]
}

// NewSyncer creates a CalDAV syncer with the default breaker.
func NewSyncer(baseURL, username, password string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Syncer{
		baseURL:  baseURL,
		username: username,
		password: password,
		logger:   logger,
		metrics:  observability.NoopMetrics{},
	}
	return s.WithBreaker(DefaultBreakerConfig())
}

// WithDeleteMissing enables deletion of marked objects missing from a push.
func (s *Syncer) WithDeleteMissing(enabled bool) *Syncer {
	s.deleteMissing = enabled
	return s
}

// WithCalendarPath sets the specific calendar path to use.
func (s *Syncer) WithCalendarPath(path string) *Syncer {
	s.calendarPath = path
	return s
}

// WithMetrics sets the metrics sink.
func (s *Syncer) WithMetrics(metrics observability.Metrics) *Syncer {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithClient replaces the HTTP-backed client.
func (s *Syncer) WithClient(client Client) *Syncer {
	s.client = client
	return s
}

// WithBreaker replaces the circuit breaker.
func (s *Syncer) WithBreaker(cfg BreakerConfig) *Syncer {
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "caldav",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return s
}

// Push writes every stored event to the calendar as its own object named
// after the event id. Projected occurrences are skipped.
func (s *Syncer) Push(ctx context.Context, events []domain.Event) (*calendarApp.SyncResult, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar: %w", err)
	}

	result := &calendarApp.SyncResult{}
	keepPaths := make(map[string]struct{}, len(events))

	for _, ev := range events {
		if ev.IsProjection() {
			continue
		}
		eventPath := objectPath(calPath, ev.ID)
		keepPaths[eventPath] = struct{}{}

		cal, err := toICalendar(ev)
		if err != nil {
			s.logger.Warn("caldav encode failed", "event_id", ev.ID, "error", err)
			result.Failed++
			continue
		}
		updated, err := s.upsertEvent(ctx, client, eventPath, cal)
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) {
				s.record("push", result)
				return result, err
			}
			s.logger.Warn("caldav sync failed", "event_path", eventPath, "error", err)
			result.Failed++
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}

	if s.deleteMissing {
		deleted, err := s.deleteMissingEvents(ctx, client, calPath, keepPaths)
		if err != nil {
			s.logger.Warn("caldav delete missing failed", "error", err)
		} else {
			result.Deleted = deleted
		}
	}

	s.record("push", result)
	s.logger.InfoContext(ctx, "caldav push finished",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)
	return result, nil
}

// Pull returns the calendar's events overlapping [start, end], owned by
// userID. Objects written by Push are skipped; the local copy is
// authoritative for them.
func (s *Syncer) Pull(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Event, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar: %w", err)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: start,
					End:   end,
				},
			},
		},
	}

	objects, err := call(s, func() ([]caldav.CalendarObject, error) {
		return client.QueryCalendar(ctx, calPath, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	cals := make([]*goical.Calendar, 0, len(objects))
	for i := range objects {
		if objects[i].Data == nil || isCadenceEvent(&objects[i]) {
			continue
		}
		cals = append(cals, objects[i].Data)
	}

	events, err := ical.FromCalendars(cals, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar objects: %w", err)
	}
	s.metrics.Counter(observability.MetricCalDAVSync, int64(len(events)),
		observability.T("direction", "pull"),
		observability.T("result", "received"),
	)
	return events, nil
}

// ListCalendars returns the calendars accessible to the user.
func (s *Syncer) ListCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	homeSet, err := s.homeSet(ctx, client)
	if err != nil {
		return nil, err
	}
	return call(s, func() ([]caldav.Calendar, error) {
		return client.FindCalendars(ctx, homeSet)
	})
}

// DeleteEvent removes the object of an event.
func (s *Syncer) DeleteEvent(ctx context.Context, eventID string) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}

	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to find calendar: %w", err)
	}

	_, err = call(s, func() (struct{}, error) {
		return struct{}{}, client.RemoveAll(ctx, objectPath(calPath, eventID))
	})
	return err
}

func (s *Syncer) record(direction string, result *calendarApp.SyncResult) {
	for outcome, n := range map[string]int{
		"created": result.Created,
		"updated": result.Updated,
		"deleted": result.Deleted,
		"failed":  result.Failed,
	} {
		if n == 0 {
			continue
		}
		s.metrics.Counter(observability.MetricCalDAVSync, int64(n),
			observability.T("direction", direction),
			observability.T("result", outcome),
		)
	}
}

// call runs fn through the breaker.
func call[T any](s *Syncer, fn func() (T, error)) (T, error) {
	var zero T
	out, err := s.breaker.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, ErrCircuitOpen
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

func (s *Syncer) getClient() (Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &basicAuthTransport{
			username: s.username,
			password: s.password,
			base:     http.DefaultTransport,
		},
	}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, s.username, s.password), s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *Syncer) homeSet(ctx context.Context, client Client) (string, error) {
	principal, err := call(s, func() (string, error) {
		return client.FindCurrentUserPrincipal(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := call(s, func() (string, error) {
		return client.FindCalendarHomeSet(ctx, principal)
	})
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	return homeSet, nil
}

func (s *Syncer) findCalendarPath(ctx context.Context, client Client) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	homeSet, err := s.homeSet(ctx, client)
	if err != nil {
		return "", err
	}

	cals, err := call(s, func() ([]caldav.Calendar, error) {
		return client.FindCalendars(ctx, homeSet)
	})
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}

	// Use first calendar as default
	s.calendarPath = cals[0].Path
	return s.calendarPath, nil
}

func (s *Syncer) upsertEvent(ctx context.Context, client Client, eventPath string, cal *goical.Calendar) (bool, error) {
	// A failed lookup means the object is new; it is not a breaker failure.
	_, err := client.GetCalendarObject(ctx, eventPath)
	exists := err == nil

	_, err = call(s, func() (*caldav.CalendarObject, error) {
		return client.PutCalendarObject(ctx, eventPath, cal)
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Syncer) deleteMissingEvents(ctx context.Context, client Client, calPath string, keepPaths map[string]struct{}) (int, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{
				{
					Name:  "VEVENT",
					Props: []string{"UID", PropXCadence},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{Name: "VEVENT"},
			},
		},
	}

	objects, err := call(s, func() ([]caldav.CalendarObject, error) {
		return client.QueryCalendar(ctx, calPath, query)
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range objects {
		obj := &objects[i]
		if !isCadenceEvent(obj) {
			continue
		}
		if _, ok := keepPaths[obj.Path]; ok {
			continue
		}
		if err := client.RemoveAll(ctx, obj.Path); err != nil {
			s.logger.Warn("failed to delete caldav event", "path", obj.Path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func objectPath(calPath, eventID string) string {
	if !strings.HasSuffix(calPath, "/") {
		calPath += "/"
	}
	return calPath + eventID + ".ics"
}

// isCadenceEvent checks if a calendar object has the X-CADENCE property set.
func isCadenceEvent(obj *caldav.CalendarObject) bool {
	if obj == nil || obj.Data == nil {
		return false
	}
	for _, child := range obj.Data.Children {
		if child.Name != goical.CompEvent {
			continue
		}
		if prop := child.Props.Get(PropXCadence); prop != nil && prop.Value == "1" {
			return true
		}
	}
	return false
}

// toICalendar wraps one event in its own calendar and marks it.
func toICalendar(ev domain.Event) (*goical.Calendar, error) {
	cal, err := ical.ToCalendar([]domain.Event{ev})
	if err != nil {
		return nil, err
	}
	for _, child := range cal.Children {
		marker := goical.NewProp(PropXCadence)
		marker.Value = "1"
		child.Props.Set(marker)
	}
	return cal, nil
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}
