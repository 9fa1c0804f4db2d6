package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

// DefaultImageInstruction replaces an empty instruction sent together with images.
const DefaultImageInstruction = "Extract the events in these images."

type Image struct {
	Data     []byte
	MIMEType string
}

type ExtractInput struct {
	Images []Image
	Text   string
	// Now is the current time in the request zone.
	Now  time.Time
	Hint *storage.LocationHint
}

type EventExtractor struct {
	client    llm.Client
	templates prompts.Templates
}

func NewEventExtractor(client llm.Client, templates prompts.Templates) *EventExtractor {
	return &EventExtractor{client: client, templates: templates}
}

func (e *EventExtractor) Extract(ctx context.Context, in ExtractInput) ([]RawEvent, error) {
	system := e.templates.ExtractionPrompt(in.Now, in.Hint)
	log.WithField("version", e.templates.Version).Debugf("extraction prompt: %s", system)

	return completeEvents(ctx, e.client, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		e.userMessage(in),
	})
}

func (e *EventExtractor) userMessage(in ExtractInput) llm.Message {
	text := strings.TrimSpace(in.Text)
	if len(in.Images) == 0 {
		return llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf(e.templates.ExtractText, text)}
	}

	if text == "" {
		text = DefaultImageInstruction
	}
	parts := make([]llm.ContentPart, 0, len(in.Images)+1)
	parts = append(parts, llm.TextPart(fmt.Sprintf(e.templates.ExtractImages, text)))
	for _, img := range in.Images {
		parts = append(parts, llm.ImagePart(img.Data, img.MIMEType))
	}
	return llm.Message{Role: llm.RoleUser, Parts: parts}
}
