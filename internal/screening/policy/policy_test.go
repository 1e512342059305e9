package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"NK", "IR", "SY", "CU", "VE", "RU"}, p.SanctionedCountries)
	assert.Equal(t, 0.75, p.SimilarityThreshold)
	assert.Equal(t, 30.0, p.MediumThreshold)
	assert.Equal(t, 60.0, p.HighThreshold)
	assert.Equal(t, 80.0, p.BlockThreshold)
	assert.Len(t, p.RiskKeywords, 8)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	})

	t.Run("file overrides are normalized", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		body := []byte("sanctioned_countries: [ru, by]\nblock_threshold: 70\nrisk_keywords: [Sanction, Tariff]\n")
		require.NoError(t, os.WriteFile(path, body, 0o600))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"RU", "BY"}, p.SanctionedCountries)
		assert.Equal(t, []string{"sanction", "tariff"}, p.RiskKeywords)
		assert.Equal(t, 70.0, p.BlockThreshold)
		assert.Equal(t, 0.75, p.SimilarityThreshold)
	})

	t.Run("invalid thresholds are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("medium_threshold: 70\nhigh_threshold: 60\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "risk levels")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
