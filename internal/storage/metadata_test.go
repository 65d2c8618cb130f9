package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/matchday/internal/common"
)

func TestSeasonCompletionRoundTrip(t *testing.T) {
	meta, err := OpenMetadataInMemory(common.GetLogger())
	require.NoError(t, err)
	defer meta.Close()

	done, err := meta.IsSeasonComplete("premier-league", "2022/2023")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, meta.MarkSeasonComplete("premier-league", "2022/2023", "composed"))

	done, err = meta.IsSeasonComplete("premier-league", "2022/2023")
	require.NoError(t, err)
	assert.True(t, done)

	// A different season of the same tournament is untouched.
	done, err = meta.IsSeasonComplete("premier-league", "2021/2022")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompletedSeasonsFiltersByTournament(t *testing.T) {
	meta, err := OpenMetadataInMemory(common.GetLogger())
	require.NoError(t, err)
	defer meta.Close()

	require.NoError(t, meta.MarkSeasonComplete("premier-league", "2021/2022", "composed"))
	require.NoError(t, meta.MarkSeasonComplete("premier-league", "2022/2023", "repaired"))
	require.NoError(t, meta.MarkSeasonComplete("la-liga", "2022/2023", "composed"))

	records, err := meta.CompletedSeasons("premier-league")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "premier-league", r.Tournament)
	}
}
