// Package token provides token estimation and counting for transcripts.
// The cheap length-based estimate drives compaction decisions and
// remaining-budget display; the tiktoken-backed counter is for accurate
// usage reporting only.
package token

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// Estimate returns ceil(len/4) as a token estimate for the given text.
// Pure and deterministic; this is the only estimate compaction may use.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}

// EstimateMessages estimates tokens for the serialized transcript, i.e. the
// concatenated message contents.
func EstimateMessages(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	return (total + 3) / 4
}

// Counter provides accurate token counting backed by tiktoken.
// Uses cl100k_base encoding; falls back to Estimate when the encoding
// cannot be initialized.
type Counter struct {
	enc  *tiktoken.Tiktoken
	once sync.Once
	err  error
}

var defaultCounter = &Counter{}

// Count returns the number of tokens in the given text using the default
// counter.
func Count(text string) int {
	return defaultCounter.Count(text)
}

// CountMessages returns total tokens for a transcript using the default
// counter.
func CountMessages(msgs []core.Message) int {
	return defaultCounter.CountMessages(msgs)
}

// Count returns the number of tokens in the given text.
func (c *Counter) Count(text string) int {
	c.init()
	if c.err != nil || c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages returns total tokens for a slice of messages.
func (c *Counter) CountMessages(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		// Base overhead per message (role, framing)
		total += 4 + c.Count(m.Content)
		if m.Reasoning != "" {
			total += c.Count(m.Reasoning)
		}
	}
	return total
}

func (c *Counter) init() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
}
