package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/prompts"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

const unknownLocation = "unknown"

// AddressEnricher resolves event locations into postal addresses through the completion service.
type AddressEnricher struct {
	client    llm.Client
	templates prompts.Templates
}

func NewAddressEnricher(client llm.Client, templates prompts.Templates) *AddressEnricher {
	return &AddressEnricher{client: client, templates: templates}
}

// Enrich overwrites LocationAddress with the canonical address and recomputes Location.
func (a *AddressEnricher) Enrich(ctx context.Context, event *storage.Event) error {
	event.LocationName = strings.TrimSpace(event.LocationName)
	event.LocationAddress = strings.TrimSpace(event.LocationAddress)

	query := strings.TrimSpace(event.LocationName + " " + event.LocationAddress)
	if query == "" || strings.EqualFold(query, unknownLocation) {
		event.Location = storage.DisplayLocation(event.LocationName, event.LocationAddress)
		return nil
	}

	details, err := a.lookup(ctx, query)
	if err != nil {
		return newError(KindAddressLookupFailed, fmt.Errorf("lookup %q: %w", query, err))
	}
	// An empty object leaves the event untouched; any listed field replaces the address.
	if details != nil {
		event.LocationDetails = details
		event.LocationAddress = details.Canonical()
	}
	event.Location = storage.DisplayLocation(event.LocationName, event.LocationAddress)
	return nil
}

func (a *AddressEnricher) lookup(ctx context.Context, query string) (*storage.LocationDetails, error) {
	resp, err := a.client.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.templates.AddressLookup},
			{Role: llm.RoleUser, Content: fmt.Sprintf(a.templates.AddressQuery, query)},
		},
		ResponseFormat: llm.JSONObject,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("query", query).Debugf("address lookup response: %s", resp.Content)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resp.Content), &fields); err != nil {
		return nil, fmt.Errorf("address is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("address is null")
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var details storage.LocationDetails
	targets := map[string]**string{
		"street_address": &details.StreetAddress,
		"city":           &details.City,
		"state":          &details.State,
		"country":        &details.Country,
		"postal_code":    &details.PostalCode,
	}
	for key, target := range targets {
		value, err := nullableString(fields[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		*target = value
	}
	return &details, nil
}

// nullableString accepts null, a string or a number (postal codes often come back as numbers).
func nullableString(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return nil, nil
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		s = n.String()
		return &s, nil
	}
	return nil, fmt.Errorf("unexpected value %s", raw)
}
