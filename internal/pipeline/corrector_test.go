package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestCorrectionWithoutEvents(t *testing.T) {
	client := reply(lunchEvents)
	corrector := NewCorrectionApplier(client, prompts.Default())

	events, err := corrector.Apply(context.Background(), CorrectionInput{Instruction: "move it to 1pm", Now: time.Now()})
	require.Nil(t, events)
	require.ErrorIs(t, err, ErrNoEventsFound)
	require.Equal(t, 0, client.calls())
}

func TestCorrectionRequest(t *testing.T) {
	client := reply(lunchEvents)
	corrector := NewCorrectionApplier(client, prompts.Default())
	street := "123 Main St"

	events, err := corrector.Apply(context.Background(), CorrectionInput{
		Instruction: "move it to 1pm",
		Events: []storage.Event{{
			Title:           "Lunch with Sam",
			StartTime:       mustParse("2024-06-02T12:00:00-04:00"),
			EndTime:         mustParse("2024-06-02T13:00:00-04:00"),
			LocationName:    "Panera Bread",
			LocationAddress: "123 Main St, Springfield",
			LocationDetails: &storage.LocationDetails{StreetAddress: &street},
			Location:        "Panera Bread - 123 Main St, Springfield",
		}},
		Now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	req := client.request(0)
	require.Contains(t, req.Messages[0].Content, "use 2024.")
	require.NotContains(t, req.Messages[0].Content, prompts.DatePlaceholder)

	user := req.Messages[1].Content
	require.Contains(t, user, `"title": "Lunch with Sam"`)
	require.Contains(t, user, `"description": ""`)
	require.Contains(t, user, `"start_time": "2024-06-02T12:00:00-04:00"`)
	require.Contains(t, user, `"end_time": "2024-06-02T13:00:00-04:00"`)
	require.Contains(t, user, `"location_name": "Panera Bread"`)
	require.Contains(t, user, `"location_address": "123 Main St, Springfield"`)
	require.Contains(t, user, "Apply this correction: move it to 1pm")
	require.NotContains(t, user, "location_details")
	require.NotContains(t, user, `"location":`)
}
