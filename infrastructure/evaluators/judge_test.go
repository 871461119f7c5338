package evaluators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gauge/internal/ports"
)

// scriptedLLM answers prompts by matching substrings against scripted
// responses, in registration order.
type scriptedLLM struct {
	mu       sync.Mutex
	rules    []scriptRule
	fallback string
	err      error
	calls    int
}

type scriptRule struct {
	contains string
	response string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string, _ map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for _, rule := range s.rules {
		if strings.Contains(prompt, rule.contains) {
			return rule.response, nil
		}
	}
	return s.fallback, nil
}

func (s *scriptedLLM) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }
func (s *scriptedLLM) GetModel() string                        { return "scripted-model" }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig(dimensions ...string) JudgeConfig {
	return JudgeConfig{
		Dimensions:     dimensions,
		Temperature:    0.0,
		MaxTokens:      256,
		MaxConcurrency: 4,
	}
}

// TestJudgeEvaluator_Evaluate verifies per-dimension scoring and mean
// aggregation across transcripts.
func TestJudgeEvaluator_Evaluate(t *testing.T) {
	llm := &scriptedLLM{
		rules: []scriptRule{
			{contains: `"relevance"`, response: `{"score": 4.0, "reasoning": "on topic"}`},
			{contains: `"fluency"`, response: `{"score": 5.0, "reasoning": "reads well"}`},
		},
	}
	judge, err := NewJudgeEvaluator(llm, testConfig("relevance", "fluency"))
	require.NoError(t, err)

	transcripts := []Transcript{
		{Query: "q1", Response: "r1"},
		{Query: "q2", Response: "r2"},
	}
	scores, err := judge.Evaluate(context.Background(), transcripts)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, scores["relevance"], 1e-9)
	assert.InDelta(t, 5.0, scores["fluency"], 1e-9)
	// One call per transcript per dimension.
	assert.Equal(t, 4, llm.callCount())
}

// TestJudgeEvaluator_ParsesFencedJSON verifies tolerance for Markdown
// code fences and surrounding prose in judge replies.
func TestJudgeEvaluator_ParsesFencedJSON(t *testing.T) {
	llm := &scriptedLLM{
		fallback: "Here is my verdict:\n```json\n{\"score\": 3.5, \"reasoning\": \"adequate\"}\n```",
	}
	judge, err := NewJudgeEvaluator(llm, testConfig("coherence"))
	require.NoError(t, err)

	scores, err := judge.Evaluate(context.Background(), []Transcript{{Query: "q", Response: "r"}})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, scores["coherence"], 1e-9)
}

// TestJudgeEvaluator_RejectsBadResponses verifies out-of-scale scores
// and unparseable replies fail the evaluation.
func TestJudgeEvaluator_RejectsBadResponses(t *testing.T) {
	t.Run("score outside scale", func(t *testing.T) {
		llm := &scriptedLLM{fallback: `{"score": 9.5, "reasoning": "generous"}`}
		judge, err := NewJudgeEvaluator(llm, testConfig("relevance"))
		require.NoError(t, err)

		_, err = judge.Evaluate(context.Background(), []Transcript{{Query: "q", Response: "r"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside scale")
	})

	t.Run("not JSON", func(t *testing.T) {
		llm := &scriptedLLM{fallback: "I would rate this a solid seven."}
		judge, err := NewJudgeEvaluator(llm, testConfig("relevance"))
		require.NoError(t, err)

		_, err = judge.Evaluate(context.Background(), []Transcript{{Query: "q", Response: "r"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrInvalidResponse)
	})

	t.Run("judge call fails", func(t *testing.T) {
		llm := &scriptedLLM{err: errors.New("provider down")}
		judge, err := NewJudgeEvaluator(llm, testConfig("relevance"))
		require.NoError(t, err)

		_, err = judge.Evaluate(context.Background(), []Transcript{{Query: "q", Response: "r"}})
		require.Error(t, err)
	})
}

// TestNewJudgeEvaluator_Validation verifies constructor guards.
func TestNewJudgeEvaluator_Validation(t *testing.T) {
	_, err := NewJudgeEvaluator(nil, testConfig("relevance"))
	require.Error(t, err)

	_, err = NewJudgeEvaluator(&scriptedLLM{}, testConfig())
	require.Error(t, err)

	_, err = NewJudgeEvaluator(&scriptedLLM{}, testConfig("charisma"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown quality dimension")
}

// TestDefaultJudgeConfig verifies that every default dimension has a
// rubric.
func TestDefaultJudgeConfig(t *testing.T) {
	config := DefaultJudgeConfig()
	assert.Len(t, config.Dimensions, len(qualityCriteria))
	for _, dimension := range config.Dimensions {
		_, ok := qualityCriteria[dimension]
		assert.True(t, ok, fmt.Sprintf("dimension %s has no rubric", dimension))
	}
}
