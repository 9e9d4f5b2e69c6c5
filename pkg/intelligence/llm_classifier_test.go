package intelligence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyloop/recall/pkg/llm"
)

// scriptedLLM returns a fixed response (or error) for every call.
type scriptedLLM struct {
	response string
	err      error
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return s.GenerateWithMessages(ctx, nil, opts...)
}

func (s *scriptedLLM) GenerateWithMessages(_ context.Context, _ []llm.Message, _ ...llm.GenerateOption) (string, error) {
	return s.response, s.err
}

func (s *scriptedLLM) Close() error { return nil }

func TestLLMClassifier(t *testing.T) {
	ctx := context.Background()
	sig := Signals{Content: "My name is Alex", HasConversation: true}

	t.Run("valid response", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLM{
			response: `{"tier":"universal","priority":"high","retention":"permanent","kind":"preference"}`,
		})

		cls := c.Classify(ctx, sig)
		assert.Equal(t, TierUniversal, cls.Tier)
		assert.Equal(t, PriorityHigh, cls.Priority)
		assert.Equal(t, RetentionPermanent, cls.Retention)
		assert.Equal(t, KindPreference, cls.Kind)
		assert.Equal(t, "llm classification", cls.Reason)
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLM{
			response: "Here is the classification:\n{\"tier\":\"session\",\"priority\":\"medium\",\"retention\":\"long_term\",\"kind\":\"general\"}\nDone.",
		})

		cls := c.Classify(ctx, sig)
		assert.Equal(t, TierSession, cls.Tier)
	})

	t.Run("provider error falls back to keywords", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLM{err: errors.New("model overloaded")})

		cls := c.Classify(ctx, sig)
		// The keyword fallback recognizes the personal marker.
		assert.Equal(t, TierUniversal, cls.Tier)
		assert.Equal(t, RetentionPermanent, cls.Retention)
		assert.Contains(t, cls.Reason, "personal marker")
	})

	t.Run("unparseable response falls back", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLM{response: "I cannot classify this."})

		cls := c.Classify(ctx, sig)
		assert.Contains(t, cls.Reason, "personal marker")
	})

	t.Run("out-of-vocabulary label falls back", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLM{
			response: `{"tier":"galactic","priority":"high","retention":"permanent","kind":"general"}`,
		})

		cls := c.Classify(ctx, sig)
		assert.Contains(t, cls.Reason, "personal marker")
	})

	t.Run("nil provider uses keywords", func(t *testing.T) {
		c := NewLLMClassifier(nil)

		cls := c.Classify(ctx, sig)
		assert.Equal(t, TierUniversal, cls.Tier)
	})
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantOK   bool
	}{
		{
			name:     "valid",
			response: `{"tier":"universal","priority":"critical","retention":"permanent","kind":"correction"}`,
			wantOK:   true,
		},
		{
			name:     "no json",
			response: "plain text",
			wantOK:   false,
		},
		{
			name:     "malformed json",
			response: `{"tier": universal}`,
			wantOK:   false,
		},
		{
			name:     "bad priority",
			response: `{"tier":"universal","priority":"urgent","retention":"permanent","kind":"general"}`,
			wantOK:   false,
		},
		{
			name:     "bad retention",
			response: `{"tier":"universal","priority":"high","retention":"forever","kind":"general"}`,
			wantOK:   false,
		},
		{
			name:     "bad kind",
			response: `{"tier":"universal","priority":"high","retention":"permanent","kind":"misc"}`,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseClassification(tt.response)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
