package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

type fakeSynthesizer struct {
	result *types.AnswerResult
	err    error
	calls  int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, contextStr, question string, sources []types.EvidenceFragment) (*types.AnswerResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSessions struct {
	err      error
	appended [][3]string
	history  []types.ConversationTurn
	exists   func() (bool, error)
}

func (f *fakeSessions) AppendTurn(ctx context.Context, sessionID, question, answer string) error {
	f.appended = append(f.appended, [3]string{sessionID, question, answer})
	return f.err
}

func (f *fakeSessions) Exists(ctx context.Context, sessionID string) (bool, error) {
	if f.exists != nil {
		return f.exists()
	}
	return true, nil
}

func (f *fakeSessions) History(ctx context.Context, sessionID string, limit int) ([]types.ConversationTurn, error) {
	return f.history, nil
}

type fakeMetrics struct {
	turns           []string
	sessionFailures int
}

func (f *fakeMetrics) RecordTurn(outcome string, duration time.Duration, iterations, fragments int) {
	f.turns = append(f.turns, outcome)
}

func (f *fakeMetrics) RecordSessionUpdateFailure() {
	f.sessionFailures++
}

func TestResolver_SufficientDelegatesToSynthesizer(t *testing.T) {
	synth := &fakeSynthesizer{result: &types.AnswerResult{
		Answer:    "the answer",
		Citations: []types.Citation{{DocumentID: "doc-1", PageNumber: 3}},
	}}
	sessions := &fakeSessions{}
	r := NewResolver(synth, sessions, nil, zap.NewNop())

	result, err := r.Resolve(context.Background(), ResolveRequest{
		State:            StateStopSufficient,
		SessionID:        "sess-1",
		Question:         "what is X",
		ResolvedQuestion: "what is X",
		Context:          "[Source: doc-1, Page: 3]\nX is Y",
	})

	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Answer)
	assert.False(t, result.IsFallback)
	assert.Equal(t, 1, synth.calls)
	require.Len(t, sessions.appended, 1)
	assert.Equal(t, "sess-1", sessions.appended[0][0])
	assert.Equal(t, "what is X", sessions.appended[0][1])
	assert.Equal(t, "the answer", sessions.appended[0][2])
}

func TestResolver_SynthesisErrorPropagates(t *testing.T) {
	synth := &fakeSynthesizer{err: types.NewError(types.ErrUpstreamUnavailable, "llm down")}
	sessions := &fakeSessions{}
	r := NewResolver(synth, sessions, nil, zap.NewNop())

	_, err := r.Resolve(context.Background(), ResolveRequest{
		State:     StateStopSufficient,
		SessionID: "sess-1",
		Question:  "q",
	})

	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamUnavailable, types.GetErrorCode(err))
	assert.Empty(t, sessions.appended)
}

func TestResolver_FallbackIsDeterministic(t *testing.T) {
	synth := &fakeSynthesizer{}
	sessions := &fakeSessions{}
	r := NewResolver(synth, sessions, nil, zap.NewNop())

	result, err := r.Resolve(context.Background(), ResolveRequest{
		State:     StateStopBudgetExhausted,
		SessionID: "sess-1",
		Question:  "what is the refund policy",
		Verdict: types.SufficiencyVerdict{
			ConfidenceScore: 0.35,
			MissingAspects:  []string{"refund window", "eligible items"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.IsFallback)
	assert.Empty(t, result.Citations)
	assert.Zero(t, synth.calls, "fallback must not call the synthesizer")

	assert.Contains(t, result.Answer, "what is the refund policy")
	assert.Contains(t, result.Answer, "refund window")
	assert.Contains(t, result.Answer, "eligible items")
	assert.Contains(t, result.Answer, "0.35")
	assert.Contains(t, result.Answer, "rephrase the question")
	assert.Contains(t, result.Answer, "upload more documents")
	assert.Contains(t, result.Answer, "ask narrower questions")

	require.Len(t, sessions.appended, 1, "session is updated on the fallback path too")
}

func TestResolver_SessionFailureNotFatal(t *testing.T) {
	synth := &fakeSynthesizer{result: &types.AnswerResult{Answer: "a"}}
	sessions := &fakeSessions{err: errors.New("redis down")}
	metrics := &fakeMetrics{}
	r := NewResolver(synth, sessions, metrics, zap.NewNop())

	result, err := r.Resolve(context.Background(), ResolveRequest{
		State:     StateStopSufficient,
		SessionID: "sess-1",
		Question:  "q",
	})

	require.NoError(t, err)
	assert.Equal(t, "a", result.Answer)
	assert.Equal(t, 1, metrics.sessionFailures)
}

func TestResolver_NonTerminalStateRejected(t *testing.T) {
	r := NewResolver(&fakeSynthesizer{}, nil, nil, zap.NewNop())

	_, err := r.Resolve(context.Background(), ResolveRequest{State: StateContinue})

	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedResponse, types.GetErrorCode(err))
}
