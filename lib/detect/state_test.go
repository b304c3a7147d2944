package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_EncodeParseRoundtrip(t *testing.T) {
	state := State{
		SeenHistoryIDs:   []int64{1, 2, 3},
		Torrents:         map[string]TorrentState{"abc": {Name: "x", Progress: 0.5}},
		ActiveHealthSigs: []string{"src/warning/msg"},
		NotifiedReleases: map[int64]time.Time{9: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}

	encoded, err := state.Encode()
	require.NoError(t, err)

	parsed, err := ParseState(encoded)
	require.NoError(t, err)
	assert.Equal(t, state, parsed)
}

func TestParseState_EmptyIsZero(t *testing.T) {
	state, err := ParseState("")
	require.NoError(t, err)
	assert.Equal(t, State{}, state)
}

func TestAddHistoryID_BoundedAtMax(t *testing.T) {
	var state State
	for id := int64(1); id <= maxSeenHistoryIDs+100; id++ {
		state.addHistoryID(id)
	}

	assert.Len(t, state.SeenHistoryIDs, maxSeenHistoryIDs)
	// Oldest IDs fall off the front.
	assert.Equal(t, int64(101), state.SeenHistoryIDs[0])
	assert.Equal(t, int64(maxSeenHistoryIDs+100), state.SeenHistoryIDs[len(state.SeenHistoryIDs)-1])
}

func TestClone_IsIndependent(t *testing.T) {
	orig := State{
		SeenHistoryIDs: []int64{1},
		Torrents:       map[string]TorrentState{"abc": {Progress: 0.1}},
	}

	clone := orig.Clone()
	clone.addHistoryID(2)
	clone.Torrents["abc"] = TorrentState{Progress: 0.9}

	assert.Equal(t, []int64{1}, orig.SeenHistoryIDs)
	assert.Equal(t, 0.1, orig.Torrents["abc"].Progress)
}
