package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
)

type CorrectionInput struct {
	Instruction string
	Events      []storage.Event
	// Now is the current time in the request zone.
	Now time.Time
}

// correctionEvent is the part of an event the model is allowed to see and change.
type correctionEvent struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	LocationName    string `json:"location_name"`
	LocationAddress string `json:"location_address"`
}

type CorrectionApplier struct {
	client    llm.Client
	templates prompts.Templates
}

func NewCorrectionApplier(client llm.Client, templates prompts.Templates) *CorrectionApplier {
	return &CorrectionApplier{client: client, templates: templates}
}

func (c *CorrectionApplier) Apply(ctx context.Context, in CorrectionInput) ([]RawEvent, error) {
	if len(in.Events) == 0 {
		return nil, newError(KindNoEventsFound, errors.New("there are no events to correct"))
	}

	current := make([]correctionEvent, 0, len(in.Events))
	for _, e := range in.Events {
		current = append(current, correctionEvent{
			Title:           e.Title,
			Description:     e.Description,
			StartTime:       formatTime(e.StartTime),
			EndTime:         formatTime(e.EndTime),
			LocationName:    e.LocationName,
			LocationAddress: e.LocationAddress,
		})
	}
	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, newError(KindMalformedAIResponse, fmt.Errorf("failed to encode current events: %w", err))
	}

	return completeEvents(ctx, c.client, []llm.Message{
		{Role: llm.RoleSystem, Content: c.templates.CorrectionPrompt(in.Now)},
		{Role: llm.RoleUser, Content: fmt.Sprintf(c.templates.CorrectionRequest, data, in.Instruction)},
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
