package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lomoval/calendar-helper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": `{"events":[]}`}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(Config{BaseURL: server.URL + "/v1/", APIKey: "secret", Model: "gpt-test"})
	resp, err := client.Complete(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleUser, Parts: []ContentPart{TextPart("look"), ImagePart([]byte("img"), "image/png")}},
		},
		ResponseFormat: JSONObject,
	})
	require.NoError(t, err)
	require.Equal(t, `{"events":[]}`, resp.Content)
	require.Equal(t, "stop", resp.FinishReason)

	require.Equal(t, "gpt-test", body["model"])
	require.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	require.Equal(t, "system prompt", messages[0].(map[string]interface{})["content"])
	parts := messages[1].(map[string]interface{})["content"].([]interface{})
	require.Equal(t, map[string]interface{}{"type": "text", "text": "look"}, parts[0])
	require.Equal(t, map[string]interface{}{
		"type":      "image_url",
		"image_url": map[string]interface{}{"url": "data:image/png;base64,aW1n"},
	}, parts[1])
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		err     error
	}{
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			err: ErrNoChoices,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
			},
			err: ErrEmptyResponse,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewOpenAIClient(Config{BaseURL: server.URL})
			_, err := client.Complete(context.Background(), ChatRequest{
				Messages: []Message{{Role: RoleUser, Content: "ping"}},
			})
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestOpenAIClientNoMessages(t *testing.T) {
	client := NewOpenAIClient(Config{})
	_, err := client.Complete(context.Background(), ChatRequest{})
	require.ErrorIs(t, err, ErrNoMessages)
}

func TestOpenAIClientContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	client := NewOpenAIClient(Config{BaseURL: server.URL})
	_, err := client.Complete(ctx, ChatRequest{Messages: []Message{{Role: RoleUser, Content: "ping"}}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type stubClient struct {
	err error
}

func (s stubClient) Complete(context.Context, ChatRequest) (ChatResponse, error) {
	return ChatResponse{Content: "{}"}, s.err
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := Instrument(stubClient{}, "address", m)
	_, err := client.Complete(context.Background(), ChatRequest{})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "calendar_helper_llm_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.Equal(t, stubClient{}, Instrument(stubClient{}, "address", nil))
}
