package prompts

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	DatePlaceholder     = "{current_date_prompt}"
	LocationPlaceholder = "{current_location_prompt}"

	unknown = "unknown"
)

var (
	ErrMissingPlaceholder = errors.New("template misses a required placeholder")
	ErrFormatVerbs        = errors.New("template has a wrong number of %s verbs")
)

// Templates is one versioned set of prompt programs.
type Templates struct {
	Version       string `yaml:"version"`
	Safety        string `yaml:"safety"`
	Extraction    string `yaml:"extraction"`
	Correction    string `yaml:"correction"`
	AddressLookup string `yaml:"address_lookup"`

	// User message formats, each with a single %s verb.
	ExtractText   string `yaml:"extract_text"`
	ExtractImages string `yaml:"extract_images"`
	SafetyRequest string `yaml:"safety_request"`
	AddressQuery  string `yaml:"address_query"`
	// CorrectionRequest takes the current events JSON and the instruction.
	CorrectionRequest string `yaml:"correction_request"`
}

// Default returns the built-in templates.
func Default() Templates {
	return Templates{
		Version:           defaultVersion,
		Safety:            safetyPrompt,
		Extraction:        extractionPrompt,
		Correction:        correctionPrompt,
		AddressLookup:     addressLookupPrompt,
		ExtractText:       "Extract calendar events from this text: %s",
		ExtractImages:     "Extract calendar events from this image and text: %s",
		SafetyRequest:     "Classify this request: %s",
		AddressQuery:      "Look up the full address for: %s",
		CorrectionRequest: "Here are the current events:\n%s\n\nApply this correction: %s\n\nRespond with the complete updated events including all fields.",
	}
}

// Load reads templates from a YAML file; fields absent from the file keep their defaults.
func Load(path string) (Templates, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("failed to read prompts %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Templates{}, fmt.Errorf("failed to parse prompts %q: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Templates{}, fmt.Errorf("prompts %q version %q: %w", path, t.Version, err)
	}
	return t, nil
}

func (t Templates) Validate() error {
	for name, tmpl := range map[string]string{"extraction": t.Extraction, "correction": t.Correction} {
		if !strings.Contains(tmpl, DatePlaceholder) {
			return fmt.Errorf("%s: %s: %w", name, DatePlaceholder, ErrMissingPlaceholder)
		}
	}
	if !strings.Contains(t.Extraction, LocationPlaceholder) {
		return fmt.Errorf("extraction: %s: %w", LocationPlaceholder, ErrMissingPlaceholder)
	}

	formats := []struct {
		name  string
		tmpl  string
		verbs int
	}{
		{"extract_text", t.ExtractText, 1},
		{"extract_images", t.ExtractImages, 1},
		{"safety_request", t.SafetyRequest, 1},
		{"address_query", t.AddressQuery, 1},
		{"correction_request", t.CorrectionRequest, 2},
	}
	for _, f := range formats {
		if got := countVerbs(f.tmpl); got != f.verbs {
			return fmt.Errorf("%s: want %d, got %d: %w", f.name, f.verbs, got, ErrFormatVerbs)
		}
	}
	return nil
}

// countVerbs counts %s verbs, ignoring escaped percent signs.
func countVerbs(tmpl string) int {
	return strings.Count(strings.ReplaceAll(tmpl, "%%", ""), "%s")
}

func (t Templates) ExtractionPrompt(now time.Time, hint *storage.LocationHint) string {
	return strings.NewReplacer(
		DatePlaceholder, DateBlock(now),
		LocationPlaceholder, LocationBlock(hint),
	).Replace(t.Extraction)
}

func (t Templates) CorrectionPrompt(now time.Time) string {
	return strings.ReplaceAll(t.Correction, DatePlaceholder, DateBlock(now))
}

// DateBlock describes the defaults for incomplete dates; now must already be in the request zone.
func DateBlock(now time.Time) string {
	zone := now.Location().String()
	if zone == "" || zone == "Local" {
		zone = "UTC"
	}
	return fmt.Sprintf(`- If the year is not provided, use %d.
- If the month is not provided, use month %d.
- If the day is not provided, use day %d.
- The current time is %s.
- The current timezone is %s.`, now.Year(), int(now.Month()), now.Day(), now.Format("15:04"), zone)
}

func LocationBlock(hint *storage.LocationHint) string {
	city, region, country := unknown, unknown, unknown
	if hint != nil {
		city = orUnknown(hint.City)
		region = orUnknown(hint.Region)
		country = orUnknown(hint.Country)
	}
	return fmt.Sprintf(`- If an event location city is not provided assume: '%s'
- If an event state or region is not provided assume: '%s'
- If an event country is not provided, assume: '%s'
Always lookup the addresses for all event locations.`, city, region, country)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknown
	}
	return s
}
