package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lomoval/calendar-helper/internal/llm"
)

var validate = validator.New()

// RawEvent is one event as returned by the model, before date normalization.
type RawEvent struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time"`
	LocationName    string `json:"location_name"`
	LocationAddress string `json:"location_address"`
}

var requiredEventKeys = []string{"title", "description", "start_time"}

func completeEvents(ctx context.Context, client llm.Client, messages []llm.Message) ([]RawEvent, error) {
	resp, err := client.Complete(ctx, llm.ChatRequest{Messages: messages, ResponseFormat: llm.JSONObject})
	if err != nil {
		return nil, newError(KindUpstreamAPIError, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, newError(KindUpstreamAPIError, llm.ErrEmptyResponse)
	}
	return parseEvents([]byte(resp.Content))
}

func parseEvents(content []byte) ([]RawEvent, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, newError(KindMalformedAIResponse, fmt.Errorf("response is not a JSON object: %w", err))
	}
	list, ok := envelope["events"]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return nil, newError(KindMalformedAIResponse, errors.New(`response has no "events" list`))
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, newError(KindMalformedAIResponse, fmt.Errorf(`"events" is not a list: %w`, err))
	}
	if len(items) == 0 {
		return nil, newError(KindNoEventsFound, errors.New("model returned an empty event list"))
	}

	events := make([]RawEvent, 0, len(items))
	for i, item := range items {
		event, err := parseEvent(item)
		if err != nil {
			e := newError(KindMalformedAIResponse, err)
			e.Index = i
			return nil, e
		}
		events = append(events, event)
	}
	return events, nil
}

func parseEvent(item json.RawMessage) (RawEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return RawEvent{}, fmt.Errorf("event is not a JSON object")
	}
	for _, key := range requiredEventKeys {
		if _, ok := fields[key]; !ok {
			return RawEvent{}, fmt.Errorf("event misses %q", key)
		}
	}

	var event RawEvent
	if err := json.Unmarshal(item, &event); err != nil {
		return RawEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	event.Title = strings.TrimSpace(event.Title)
	event.StartTime = strings.TrimSpace(event.StartTime)
	if err := validate.Struct(event); err != nil {
		return RawEvent{}, fmt.Errorf("invalid event: %w", err)
	}
	return event, nil
}
