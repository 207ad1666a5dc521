package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetry_RecoversFromOutage(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Provider: "sambanova", StatusCode: 503}},
		MockResponse{Err: &ErrRateLimit{Provider: "sambanova"}},
		MockResponse{Text: "[" + mathQuestion + "]"},
	)

	resp, err := WithRetry(mock, fastRetry(3), nil).Generate(context.Background(), questionGenRequest())
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "3x + 2 = 11")
	assert.Equal(t, []string{"question-gen", "question-gen", "question-gen"}, mock.Purposes())
}

func TestRetry_GivesUpWithLastError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Provider: "sambanova", Err: errors.New("connection refused")}},
		MockResponse{Err: &ErrProviderUnavailable{Provider: "sambanova", Err: errors.New("connection reset")}},
	)

	_, err := WithRetry(mock, fastRetry(2), nil).Generate(context.Background(), questionGenRequest())
	var down *ErrProviderUnavailable
	require.True(t, errors.As(err, &down), "got %T", err)
	assert.EqualError(t, err, "sambanova unavailable: connection reset")
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetry_InvalidQuestionResampledOnce(t *testing.T) {
	bad := MockResponse{Text: `{"question": "missing everything else"}`}
	mock := NewMockProvider(bad, bad, MockResponse{Text: mathQuestion})

	_, err := WithRetry(mock, fastRetry(5), nil).Generate(context.Background(), singleQuestionRequest())
	var invalid *ErrInvalidResponse
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetry_PermanentFailures(t *testing.T) {
	cases := map[string]MockResponse{
		"bad key":   {Err: &ErrProviderUnavailable{Provider: "openai", StatusCode: 401, Err: errors.New("invalid api key")}},
		"truncated": {Text: mathQuestion[:30], StopReason: StopMaxTokens},
		"deadline":  {Err: context.DeadlineExceeded},
	}
	for name, first := range cases {
		t.Run(name, func(t *testing.T) {
			mock := NewMockProvider(first, MockResponse{Text: mathQuestion})

			_, err := WithRetry(mock, fastRetry(3), nil).Generate(context.Background(), singleQuestionRequest())
			assert.Error(t, err)
			assert.Equal(t, 1, mock.CallCount())
		})
	}
}

func TestRetry_TimeoutIsRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Provider: "gemini", StatusCode: 408}},
		MockResponse{Text: "[]"},
	)

	_, err := WithRetry(mock, fastRetry(3), nil).Generate(context.Background(), questionGenRequest())
	assert.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetry_ZeroAttemptsStillCallsOnce(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "[]"})

	_, err := WithRetry(mock, RetryConfig{}, nil).Generate(context.Background(), questionGenRequest())
	assert.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{Provider: "sambanova"}},
		MockResponse{Text: "[]"},
	)

	_, err := WithRetry(mock, fastRetry(3), nil).Generate(ctx, questionGenRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestPacedBackOff_HonoursRateLimitHint(t *testing.T) {
	r := WithRetry(nil, RetryConfig{MaxAttempts: 3, InitialWait: 10 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}, nil).(*RetryProvider)
	b := &pacedBackOff{ExponentialBackOff: r.schedule(), max: time.Second}

	b.hint = 300 * time.Millisecond
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())

	next := b.NextBackOff()
	assert.Less(t, next, 300*time.Millisecond, "hint applies to one wait only")

	b.hint = time.Minute
	assert.Equal(t, time.Second, b.NextBackOff(), "hint capped at MaxWait")
}
