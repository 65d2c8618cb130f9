package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "competitions.json", `{
		"countries": [
			{
				"name": "England",
				"tournaments": [
					{"name": "Premier League", "url": "https://example.com/football/england/premier-league/"},
					{"name": "Championship", "url": "https://example.com/football/england/championship/"}
				]
			}
		]
	}`)

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Countries, 1)
	assert.Equal(t, "England", catalog.Countries[0].Name)
	assert.Equal(t, 2, catalog.TournamentCount())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "competitions.yaml", `
countries:
  - name: Spain
    tournaments:
      - name: LaLiga
        url: https://example.com/football/spain/laliga/
`)

	catalog, err := Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Countries, 1)
	assert.Equal(t, "LaLiga", catalog.Countries[0].Tournaments[0].Name)
}

func TestLoadRejectsMalformedURL(t *testing.T) {
	path := writeFile(t, "competitions.json", `{
		"countries": [
			{"name": "England", "tournaments": [{"name": "Premier League", "url": "not-a-url"}]}
		]
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "competitions.toml", `countries = []`)

	_, err := Load(path)
	assert.Error(t, err)
}
