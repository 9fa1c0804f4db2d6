package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	PartText     = "text"
	PartImageURL = "image_url"

	DefaultImageType = "image/jpeg"
)

var (
	ErrNoMessages    = errors.New("chat requires at least one message")
	ErrNoChoices     = errors.New("response missing choices")
	ErrEmptyResponse = errors.New("response empty")
)

// JSONObject asks the service to constrain the completion to a JSON object.
var JSONObject = &ResponseFormat{Type: "json_object"}

type ImageURL struct {
	URL string `json:"url"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart inlines the image as a base64 data URI.
func ImagePart(data []byte, mimeType string) ContentPart {
	if mimeType == "" {
		mimeType = DefaultImageType
	}
	return ContentPart{
		Type:     PartImageURL,
		ImageURL: &ImageURL{URL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)},
	}
}

// Message carries either plain Content or multi-part Parts.
type Message struct {
	Role    string
	Content string
	Parts   []ContentPart
}

func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{m.Role, m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Content})
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatResponse struct {
	Content      string
	FinishReason string
}

type Client interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
