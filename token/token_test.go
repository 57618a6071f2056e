package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char rounds up", "a", 1},
		{"exact multiple", "abcd", 1},
		{"five chars", "abcde", 2},
		{"3000 chars is 750 tokens", strings.Repeat("x", 3000), 750},
		{"2996 chars is 749 tokens", strings.Repeat("x", 2996), 749},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	msgs := []core.Message{
		{Role: core.RoleUser, Content: strings.Repeat("a", 1000)},
		{Role: core.RoleAssistant, Content: strings.Repeat("b", 2000)},
	}
	assert.Equal(t, 750, EstimateMessages(msgs))

	assert.Equal(t, 0, EstimateMessages(nil))
}

func TestEstimateMessagesIgnoresReasoning(t *testing.T) {
	msgs := []core.Message{
		{Role: core.RoleAssistant, Content: "abcd", Reasoning: strings.Repeat("r", 400)},
	}
	assert.Equal(t, 1, EstimateMessages(msgs))
}

func TestCounterFallsBackToEstimate(t *testing.T) {
	// A counter whose init failed must fall back to the length estimate.
	c := &Counter{}
	c.once.Do(func() {}) // mark initialized with nil encoding
	assert.Equal(t, Estimate("hello world"), c.Count("hello world"))
}
