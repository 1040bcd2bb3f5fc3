package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := NoDelay(3).Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		assert.Equal(t, 1, attempt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessOnThirdAttempt(t *testing.T) {
	var seen []int
	var retried []int
	p := NoDelay(3).WithOnRetry(func(attempt int, _ error) {
		retried = append(retried, attempt)
	})
	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("bad row")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := NoDelay(3).Do(context.Background(), func(context.Context, int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_ZeroAttemptsStillTriesOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Fixed(3, time.Hour).WithOnRetry(func(int, error) { cancel() })

	calls := 0
	err := p.Do(ctx, func(context.Context, int) error {
		calls++
		return errors.New("x")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelay_Schedule(t *testing.T) {
	p := Policy{MaxAttempts: 5, Delays: []time.Duration{time.Second, 3 * time.Second}}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 3*time.Second, p.Delay(2))
	assert.Equal(t, 3*time.Second, p.Delay(4))
	assert.Equal(t, time.Duration(0), NoDelay(3).Delay(1))

	d := Default()
	assert.Equal(t, 3, d.Attempts())
	assert.Equal(t, 2*time.Second, d.Delay(1))
}
