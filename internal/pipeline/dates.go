package pipeline

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for request timezones

	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

// DefaultDuration is the length of an event without an end time.
const DefaultDuration = time.Hour

var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999Z0700",
		"2006-01-02T15:04Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// DateNormalizer turns model timestamps into instants. Naive timestamps are read in the request zone.
type DateNormalizer struct{}

func (DateNormalizer) Normalize(raw RawEvent, loc *time.Location) (storage.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := parseTimestamp(raw.StartTime, loc)
	if err != nil {
		return storage.Event{}, newError(KindInvalidDateFormat, fmt.Errorf("start_time: %w", err))
	}

	end := start.Add(DefaultDuration)
	if strings.TrimSpace(raw.EndTime) != "" {
		end, err = parseTimestamp(raw.EndTime, loc)
		if err != nil {
			return storage.Event{}, newError(KindInvalidDateFormat, fmt.Errorf("end_time: %w", err))
		}
		if !end.After(start) {
			log.WithField("title", raw.Title).Warnf("end %s is not after start %s, using default duration", raw.EndTime, raw.StartTime)
			end = start.Add(DefaultDuration)
		}
	}

	name := strings.TrimSpace(raw.LocationName)
	address := strings.TrimSpace(raw.LocationAddress)
	return storage.Event{
		Title:           raw.Title,
		Description:     raw.Description,
		StartTime:       start,
		EndTime:         end,
		LocationName:    name,
		LocationAddress: address,
		Location:        storage.DisplayLocation(name, address),
	}, nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 timestamp", value)
}
