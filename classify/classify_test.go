package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCancellationIsSilent(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context canceled", context.Canceled},
		{"wrapped context canceled", fmt.Errorf("stream: %w", context.Canceled)},
		{"engine sentinel", ErrCancelled},
		{"wrapped sentinel", fmt.Errorf("consume: %w", ErrCancelled)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.err)
			assert.True(t, res.Silent)
			assert.Empty(t, res.Message)
		})
	}
}

func TestClassifyExtractsEmbeddedProviderMessage(t *testing.T) {
	err := errors.New(`provider request failed: {"error":{"message":"rate limited"}}`)
	res := Classify(err)
	assert.False(t, res.Silent)
	assert.Equal(t, "rate limited", res.Message)
}

func TestClassifyNestedPayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{
			"response.data.error.message",
			map[string]any{"response": map[string]any{"data": map[string]any{"error": map[string]any{"message": "quota exceeded"}}}},
			"quota exceeded",
		},
		{
			"response.data.message",
			map[string]any{"response": map[string]any{"data": map[string]any{"message": "bad gateway"}}},
			"bad gateway",
		},
		{
			"error.message",
			map[string]any{"error": map[string]any{"message": "invalid model"}},
			"invalid model",
		},
		{
			"message",
			map[string]any{"message": "plain message"},
			"plain message",
		},
		{
			"intermediate json string",
			map[string]any{"response": map[string]any{"data": `{"error":{"message":"overloaded"}}`}},
			"overloaded",
		},
		{
			"one level of recursive unwrap",
			map[string]any{"message": `{"error":{"message":"rate limited"}}`},
			"rate limited",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := DecodeNestedPayload(tt.v)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Message)
		})
	}
}

func TestClassifyPlainError(t *testing.T) {
	res := Classify(errors.New("connection refused"))
	assert.False(t, res.Silent)
	assert.Equal(t, "connection refused", res.Message)
}

func TestClassifyObjectStringification(t *testing.T) {
	type payload struct {
		Code   int    `json:"code"`
		Detail string `json:"detail"`
	}
	res := Classify(payload{Code: 500, Detail: "boom"})
	assert.JSONEq(t, `{"code":500,"detail":"boom"}`, res.Message)
}

func TestClassifyUnmarshalableObjectFallsBack(t *testing.T) {
	res := Classify(map[string]any{"fn": func() {}})
	assert.Equal(t, FallbackMessage, res.Message)
}

func TestClassifyPrimitives(t *testing.T) {
	assert.Equal(t, "42", Classify(42).Message)
	assert.Equal(t, "true", Classify(true).Message)
	assert.Equal(t, "plain text", Classify("plain text").Message)
	assert.Equal(t, FallbackMessage, Classify(nil).Message)
}

func TestDecodersAreOrderedAndIndependent(t *testing.T) {
	// A cancellation wrapped around a payload-shaped message must stay silent.
	err := fmt.Errorf(`{"error":{"message":"late"}}: %w`, context.Canceled)
	res := Classify(err)
	assert.True(t, res.Silent)

	// Non-error values never match the cancellation decoder.
	_, ok := DecodeCancellation("context canceled")
	assert.False(t, ok)

	// The error decoder does not fire for non-errors.
	_, ok = DecodeError("nope")
	assert.False(t, ok)
}

func TestClassifyNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Classify(make(chan int))
	})
	res := Classify(make(chan int))
	assert.Equal(t, FallbackMessage, res.Message)
}
