package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/lomoval/calendar-helper/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestDateBlock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	block := DateBlock(time.Date(2024, 6, 1, 9, 5, 0, 0, ny))
	require.Contains(t, block, "use 2024.")
	require.Contains(t, block, "use month 6.")
	require.Contains(t, block, "use day 1.")
	require.Contains(t, block, "The current time is 09:05.")
	require.Contains(t, block, "The current timezone is America/New_York.")

	block = DateBlock(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	require.Contains(t, block, "The current timezone is UTC.")
}

func TestLocationBlock(t *testing.T) {
	block := LocationBlock(nil)
	require.Contains(t, block, "city is not provided assume: 'unknown'")
	require.Contains(t, block, "region is not provided assume: 'unknown'")
	require.Contains(t, block, "country is not provided, assume: 'unknown'")

	block = LocationBlock(&storage.LocationHint{City: "Springfield", Country: "US"})
	require.Contains(t, block, "assume: 'Springfield'")
	require.Contains(t, block, "region is not provided assume: 'unknown'")
	require.Contains(t, block, "assume: 'US'")
}

func TestExtractionPrompt(t *testing.T) {
	prompt := Default().ExtractionPrompt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), nil)
	require.NotContains(t, prompt, DatePlaceholder)
	require.NotContains(t, prompt, LocationPlaceholder)
	require.Contains(t, prompt, "use 2024.")
	require.Contains(t, prompt, `{"events": [`)

	correction := Default().CorrectionPrompt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NotContains(t, correction, DatePlaceholder)
	require.Contains(t, correction, "Return EVERY event")
}

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		tmpl, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), tmpl)
	})

	t.Run("override", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(file, []byte(`
version: "2024-07-01"
address_lookup: "Return the address as JSON."
`), 0o600))

		tmpl, err := Load(file)
		require.NoError(t, err)
		require.Equal(t, "2024-07-01", tmpl.Version)
		require.Equal(t, "Return the address as JSON.", tmpl.AddressLookup)
		require.Equal(t, Default().Extraction, tmpl.Extraction)
	})

	t.Run("missing placeholder", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(file, []byte(`extraction: "Extract events."`), 0o600))

		_, err := Load(file)
		require.ErrorIs(t, err, ErrMissingPlaceholder)
	})

	t.Run("wrong format verbs", func(t *testing.T) {
		for _, override := range []string{
			`extract_text: "Extract events from the text below."`,
			`address_query: "Find %s near %s"`,
			`correction_request: "Apply this correction: %s"`,
			`safety_request: "100%% calendar related?"`,
		} {
			file := filepath.Join(t.TempDir(), "prompts.yaml")
			require.NoError(t, os.WriteFile(file, []byte(override), 0o600))

			_, err := Load(file)
			require.ErrorIs(t, err, ErrFormatVerbs, override)
		}
	})

	t.Run("escaped percent", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(file, []byte(`safety_request: "Is this 100%% calendar related: %s"`), 0o600))

		tmpl, err := Load(file)
		require.NoError(t, err)
		require.Equal(t, "Is this 100% calendar related: x", fmt.Sprintf(tmpl.SafetyRequest, "x"))
	})

	t.Run("not exist", func(t *testing.T) {
		_, err := Load("_not_exist_.yaml")
		require.Error(t, err)
	})
}
