package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
	"github.com/stretchr/testify/require"
)

const lunchEvents = `{"events":[{"title":"Lunch with Sam","description":"","start_time":"2024-06-02T12:00:00-04:00","location_name":"Panera Bread","location_address":null}]}`

func TestExtractTextOnly(t *testing.T) {
	client := reply(lunchEvents)
	extractor := NewEventExtractor(client, prompts.Default())

	events, err := extractor.Extract(context.Background(), ExtractInput{
		Text: "Lunch with Sam tomorrow at noon at Panera",
		Now:  time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, []RawEvent{{
		Title:        "Lunch with Sam",
		StartTime:    "2024-06-02T12:00:00-04:00",
		LocationName: "Panera Bread",
	}}, events)

	req := client.request(0)
	require.Equal(t, llm.JSONObject, req.ResponseFormat)
	require.Len(t, req.Messages, 2)
	system := req.Messages[0].Content
	require.Contains(t, system, "use 2024.")
	require.Contains(t, system, "The current time is 08:00.")
	require.Contains(t, system, "city is not provided assume: 'unknown'")
	require.Equal(t, "Extract calendar events from this text: Lunch with Sam tomorrow at noon at Panera", req.Messages[1].Content)
	require.Empty(t, req.Messages[1].Parts)
}

func TestExtractWithImages(t *testing.T) {
	client := reply(lunchEvents)
	extractor := NewEventExtractor(client, prompts.Default())

	_, err := extractor.Extract(context.Background(), ExtractInput{
		Images: []Image{{Data: []byte("jpeg")}, {Data: []byte("png"), MIMEType: "image/png"}},
		Hint:   &storage.LocationHint{City: "Springfield", Region: "Illinois", Country: "United States"},
		Now:    time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	req := client.request(0)
	require.Contains(t, req.Messages[0].Content, "city is not provided assume: 'Springfield'")
	parts := req.Messages[1].Parts
	require.Len(t, parts, 3)
	require.Equal(t, llm.TextPart("Extract calendar events from this image and text: "+DefaultImageInstruction), parts[0])
	require.Equal(t, "data:image/jpeg;base64,anBlZw==", parts[1].ImageURL.URL)
	require.Equal(t, "data:image/png;base64,cG5n", parts[2].ImageURL.URL)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
		err    error
		index  int
	}{
		{name: "transport", client: failing(errTransport), err: ErrUpstreamAPIError, index: -1},
		{name: "empty body", client: reply("  "), err: ErrUpstreamAPIError, index: -1},
		{name: "not json", client: reply("I found a lunch tomorrow"), err: ErrMalformedAIResponse, index: -1},
		{name: "no events key", client: reply(`{"items":[]}`), err: ErrMalformedAIResponse, index: -1},
		{name: "events null", client: reply(`{"events":null}`), err: ErrMalformedAIResponse, index: -1},
		{name: "events object", client: reply(`{"events":{"title":"x"}}`), err: ErrMalformedAIResponse, index: -1},
		{name: "empty events", client: reply(`{"events":[]}`), err: ErrNoEventsFound, index: -1},
		{
			name:   "missing description",
			client: reply(`{"events":[{"title":"a","description":"","start_time":"2024-06-02T12:00:00Z"},{"title":"b","start_time":"2024-06-02T12:00:00Z"}]}`),
			err:    ErrMalformedAIResponse,
			index:  1,
		},
		{
			name:   "empty title",
			client: reply(`{"events":[{"title":" ","description":"","start_time":"2024-06-02T12:00:00Z"}]}`),
			err:    ErrMalformedAIResponse,
			index:  0,
		},
		{
			name:   "empty start",
			client: reply(`{"events":[{"title":"a","description":"","start_time":""}]}`),
			err:    ErrMalformedAIResponse,
			index:  0,
		},
		{
			name:   "element is not an object",
			client: reply(`{"events":["lunch"]}`),
			err:    ErrMalformedAIResponse,
			index:  0,
		},
		{
			name:   "wrong field type",
			client: reply(`{"events":[{"title":1,"description":"","start_time":"2024-06-02T12:00:00Z"}]}`),
			err:    ErrMalformedAIResponse,
			index:  0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewEventExtractor(tt.client, prompts.Default())
			events, err := extractor.Extract(context.Background(), ExtractInput{Text: "lunch", Now: time.Now()})
			require.Nil(t, events)
			require.ErrorIs(t, err, tt.err)

			var e *Error
			require.ErrorAs(t, err, &e)
			require.Equal(t, tt.index, e.Index)
		})
	}
}
