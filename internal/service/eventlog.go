package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"reservoir_controller/internal/models"
	"reservoir_controller/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.EventFilter{}, errInvalidTimeRange
	}

	return repository.EventFilter{
		From:        from,
		To:          to,
		Type:        normalizeEventType(f.Type),
		ReservoirID: strings.TrimSpace(f.ReservoirID),
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error) {
	filter, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, filter)
}
