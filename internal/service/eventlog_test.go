package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"
)

// captureEventRepo records the filter passed to List.
type captureEventRepo struct {
	gotCtx    context.Context
	gotFilter repository.EventFilter

	events []models.ControllerEvent
	err    error

	calls int
}

func (f *captureEventRepo) List(ctx context.Context, filter repository.EventFilter) ([]models.ControllerEvent, error) {
	f.calls++
	f.gotCtx = ctx
	f.gotFilter = filter
	return f.events, f.err
}

func (f *captureEventRepo) Append(ctx context.Context, e models.ControllerEvent) error {
	return nil
}

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

// normalizeToUTC

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC) // 12:34:56+03 == 09:34:56Z
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
		{
			name: "already UTC stays UTC and same instant",
			in:   time.Date(2025, time.August, 2, 0, 0, 0, 0, time.UTC),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 2, 0, 0, 0, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

// normalizeEventType

func Test_normalizeEventType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		exp  string
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim spaces", in: "  DOSE ", exp: "DOSE"},
		{name: "uppercase", in: "error", exp: "ERROR"},
		{name: "spaces preserved except ends", in: " feed_timeout ", exp: "FEED_TIMEOUT"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeEventType(c.in)
			if got != c.exp {
				t.Fatalf("normalizeEventType(%q) = %q; want %q", c.in, got, c.exp)
			}
		})
	}
}

// normalizeAndValidateFilter

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(fixedZone("UTC+2", 2*3600), 2025, time.September, 10, 10, 0, 0)
	toUTC := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      LogFilter
		want    repository.EventFilter
		wantErr error
	}{
		{
			name: "all zero/empty ok",
			in:   LogFilter{},
			want: repository.EventFilter{},
		},
		{
			name: "from after to -> error",
			in: LogFilter{
				From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
				Type: "dose",
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name: "normalize tz, type and reservoir",
			in: LogFilter{
				From:        fromLocal,
				To:          toUTC,
				Type:        " dose ",
				ReservoirID: " res-1 ",
			},
			want: repository.EventFilter{
				From:        time.Date(2025, time.September, 10, 8, 0, 0, 0, time.UTC), // 10:00 +02 -> 08:00Z
				To:          toUTC,
				Type:        "DOSE",
				ReservoirID: "res-1",
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeAndValidateFilter(tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if err != nil {
				return
			}
			if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) {
				t.Fatalf("bounds: got [%v, %v]; want [%v, %v]", got.From, got.To, tc.want.From, tc.want.To)
			}
			if got.Type != tc.want.Type || got.ReservoirID != tc.want.ReservoirID {
				t.Fatalf("filter: got %+v; want %+v", got, tc.want)
			}
		})
	}
}

// EventLogService.List

func TestEventLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &captureEventRepo{
		events: []models.ControllerEvent{
			{EventID: "1"},
		},
	}
	svc := NewEventLogService(frepo)

	fromLocal := mustTimeIn(fixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(fixedZone("UTC-2", -2*3600), 2025, time.October, 1, 12, 30, 0)
	ctx := context.Background()

	out, err := svc.List(ctx, LogFilter{
		From:        fromLocal,
		To:          toLocal,
		Type:        "  suppress ",
		ReservoirID: "res-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected events: %+v", out)
	}
	if frepo.calls != 1 {
		t.Fatalf("repo List should be called once, got %d", frepo.calls)
	}

	// Check normalized values passed to repo
	wantFrom := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC) // 10:00 +05 -> 05:00Z
	wantTo := time.Date(2025, time.October, 1, 14, 30, 0, 0, time.UTC) // 12:30 -02 -> 14:30Z

	if !frepo.gotFilter.From.Equal(wantFrom) {
		t.Fatalf("repo from=%v; want %v", frepo.gotFilter.From, wantFrom)
	}
	if !frepo.gotFilter.To.Equal(wantTo) {
		t.Fatalf("repo to=%v; want %v", frepo.gotFilter.To, wantTo)
	}
	if frepo.gotFilter.Type != "SUPPRESS" {
		t.Fatalf("repo type=%q; want %q", frepo.gotFilter.Type, "SUPPRESS")
	}
	if frepo.gotFilter.ReservoirID != "res-1" {
		t.Fatalf("repo reservoir=%q; want %q", frepo.gotFilter.ReservoirID, "res-1")
	}
}

func TestEventLogService_List_ValidationError(t *testing.T) {
	t.Parallel()

	frepo := &captureEventRepo{}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if frepo.calls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.calls)
	}
}

func TestEventLogService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &captureEventRepo{err: errors.New("db down")}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{})
	if !errors.Is(err, frepo.err) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
	if frepo.calls != 1 {
		t.Fatalf("repo should be called once, calls=%d", frepo.calls)
	}
}

func TestEventLogService_List_ZeroBoundsPassedAsZero(t *testing.T) {
	t.Parallel()

	frepo := &captureEventRepo{}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !frepo.gotFilter.From.IsZero() || !frepo.gotFilter.To.IsZero() || frepo.gotFilter.Type != "" {
		t.Fatalf("expected zero bounds and empty type; got %+v", frepo.gotFilter)
	}
}
