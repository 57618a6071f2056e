package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/token"
)

// Summarizer condenses a slice of messages into a short prose summary.
type Summarizer interface {
	Summarize(ctx context.Context, messages []core.Message) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, messages []core.Message) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, messages []core.Message) (string, error) {
	return f(ctx, messages)
}

// CompactorOptions tune when and how much of a transcript is compacted.
type CompactorOptions struct {
	// TriggerRatio is the fraction of the context budget at which
	// compaction fires. A transcript estimated at or above
	// TriggerRatio * budget is compacted.
	TriggerRatio float64

	// SplitFraction is the fraction of the message list, from the front,
	// handed to the Summarizer. The remainder is retained verbatim.
	SplitFraction float64
}

// Compactor folds the oldest portion of a transcript into a running
// summary once the estimated token count approaches the context budget.
type Compactor struct {
	summarizer Summarizer
	opts       CompactorOptions
}

// NewCompactor constructs a Compactor around the given Summarizer.
func NewCompactor(summarizer Summarizer, optFns ...func(o *CompactorOptions)) *Compactor {
	opts := CompactorOptions{
		TriggerRatio:  0.75,
		SplitFraction: 0.5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Compactor{summarizer: summarizer, opts: opts}
}

// Result describes the outcome of a single Compact call.
type Result struct {
	// Messages is the possibly revised message list.
	Messages []core.Message

	// Summary is the running summary, extended when compaction fired.
	Summary string

	// Compacted reports whether any messages were folded away.
	Compacted bool

	// SummarizedCount is how many messages the summary absorbed.
	SummarizedCount int
}

// Compact decides whether the transcript needs compaction and, when it
// does, summarizes the older half and replaces it with a single system
// message. The previous summary is only ever extended. When the
// Summarizer fails, the input is returned unchanged alongside the error so
// the caller can proceed with the uncompacted transcript.
func (c *Compactor) Compact(
	ctx context.Context,
	messages []core.Message,
	summary string,
	enabled bool,
	budget int,
) (Result, error) {
	unchanged := Result{Messages: messages, Summary: summary}

	if !enabled || budget <= 0 || c.summarizer == nil {
		return unchanged, nil
	}
	if len(messages) < 2 {
		return unchanged, nil
	}

	estimate := token.EstimateMessages(messages)
	if float64(estimate) < c.opts.TriggerRatio*float64(budget) {
		return unchanged, nil
	}

	split := int(float64(len(messages)) * c.opts.SplitFraction)
	if split < 1 {
		return unchanged, nil
	}
	head, tail := messages[:split], messages[split:]

	addition, err := c.summarizer.Summarize(ctx, head)
	if err != nil {
		return unchanged, fmt.Errorf("summarize %d messages: %w", len(head), err)
	}
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return unchanged, fmt.Errorf("summarizer returned an empty summary")
	}

	merged := joinSummaries(summary, addition)

	revised := make([]core.Message, 0, len(tail)+1)
	revised = append(revised, core.NewSummaryMessage(fmt.Sprintf(
		"Earlier conversation (%d messages) was summarized to save space. The summary is carried in the session memory.",
		len(head),
	)))
	revised = append(revised, tail...)

	return Result{
		Messages:        revised,
		Summary:         merged,
		Compacted:       true,
		SummarizedCount: len(head),
	}, nil
}

// joinSummaries concatenates two summaries with a blank line, omitting
// either side when empty. Existing text always comes first.
func joinSummaries(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return addition
	}
	if addition == "" {
		return existing
	}
	return existing + "\n\n" + addition
}
