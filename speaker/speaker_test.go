package speaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

var roster = []core.Participant{
	{ID: "p1", Name: "Aria"},
	{ID: "p2", Name: "Bram"},
}

func TestResolveMatchesParticipant(t *testing.T) {
	id, ok := Resolve("[Aria]: Hello there", roster)
	require.True(t, ok)
	assert.Equal(t, "p1", id)
}

func TestResolveUnknownNameIsUnattributed(t *testing.T) {
	_, ok := Resolve("[Ghost]: Hi", roster)
	assert.False(t, ok)
}

func TestResolveRequiresExactName(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"case differs", "[aria]: hi"},
		{"partial name", "[Ari]: hi"},
		{"extra text in tag", "[Aria the Bold]: hi"},
		{"no tag at all", "Aria: hi"},
		{"tag not at start", "said [Aria]: hi"},
		{"missing colon", "[Aria] hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Resolve(tt.content, roster)
			assert.False(t, ok)
		})
	}
}

func TestResolveAllowsLeadingWhitespace(t *testing.T) {
	id, ok := Resolve("  \n[Bram]: well met", roster)
	require.True(t, ok)
	assert.Equal(t, "p2", id)
}

func TestResolveDuplicateNamesFirstWins(t *testing.T) {
	dupes := []core.Participant{
		{ID: "first", Name: "Echo"},
		{ID: "second", Name: "Echo"},
	}
	id, ok := Resolve("[Echo]: who said that?", dupes)
	require.True(t, ok)
	assert.Equal(t, "first", id)
}

func TestResolveEmptyRoster(t *testing.T) {
	_, ok := Resolve("[Aria]: hi", nil)
	assert.False(t, ok)
}
