package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/lomoval/calendar-helper/internal/storage"
)

const (
	DefaultProductID = "-//Calendar Helper//calendar-helper//EN"
	DefaultFooter    = "Calendar item created by calendar-helper"
)

var ErrNoEvents = errors.New("no events to export")

type Options struct {
	ProductID string
	// Footer is appended to every description after a blank line; empty disables it.
	Footer string
	// Now stamps DTSTAMP, time.Now when nil.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{ProductID: DefaultProductID, Footer: DefaultFooter}
}

// Generate serializes events into an iCalendar document. Every VEVENT gets a fresh UID.
func Generate(events []storage.Event, opts Options) (string, error) {
	if len(events) == 0 {
		return "", ErrNoEvents
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)

	stamp := now().UTC()
	for _, e := range events {
		ve := cal.AddEvent(uuid.NewString())
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		ve.SetDescription(description(e.Description, opts.Footer))
		ve.SetStartAt(e.StartTime)
		ve.SetEndAt(e.EndTime)
		location := e.Location
		if location == "" {
			location = storage.DisplayLocation(e.LocationName, e.LocationAddress)
		}
		if location != "" {
			ve.SetLocation(location)
		}
	}
	return cal.Serialize(), nil
}

func description(text, footer string) string {
	text = strings.TrimSpace(text)
	switch {
	case footer == "":
		return text
	case text == "":
		return footer
	default:
		return text + "\n\n" + footer
	}
}
