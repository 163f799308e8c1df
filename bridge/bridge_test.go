package bridge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var testLogger *zap.Logger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	testLogger = l
}

func newTestBridge(t *testing.T, l Launcher, opts ...Option) *Bridge {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger)}, opts...)
	b, err := New(l, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

// echoLauncher yields a worker that echoes each request line verbatim.
func echoLauncher() Launcher {
	return &ExecLauncher{Command: "cat"}
}

// shLauncher yields a worker running the given shell script.
func shLauncher(script string) Launcher {
	return &ExecLauncher{Command: "sh", Args: []string{"-c", script}}
}

// silentLauncher yields a worker that consumes requests but never answers.
func silentLauncher() Launcher {
	return shLauncher(`while read line; do :; done`)
}

func TestEchoOrdering(t *testing.T) {
	b := newTestBridge(t, echoLauncher())

	reqA, err := b.send("echo", map[string]any{"msg": "a"}, time.Minute)
	require.NoError(t, err)
	reqB, err := b.send("echo", map[string]any{"msg": "b"}, time.Minute)
	require.NoError(t, err)

	resA := <-reqA.done
	require.NoError(t, resA.err)
	assert.Equal(t, "a", resA.value["msg"])

	resB := <-reqB.done
	require.NoError(t, resB.err)
	assert.Equal(t, "b", resB.value["msg"])
}

func TestConcurrentSendsResolveFIFO(t *testing.T) {
	b := newTestBridge(t, echoLauncher())

	const n = 25
	reqs := make([]*pendingRequest, n)
	for i := 0; i < n; i++ {
		req, err := b.send("echo", map[string]any{"msg": fmt.Sprintf("m%d", i)}, time.Minute)
		require.NoError(t, err)
		reqs[i] = req
	}

	group := errgroup.Group{}
	for i, req := range reqs {
		i, req := i, req
		group.Go(func() error {
			res := <-req.done
			if res.err != nil {
				return res.err
			}
			if got := res.value["msg"]; got != fmt.Sprintf("m%d", i) {
				return fmt.Errorf("request %d got response %v", i, got)
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
}

func TestCallTimeout(t *testing.T) {
	b := newTestBridge(t, silentLauncher())

	start := time.Now()
	_, err := b.Call(context.Background(), "slow_op", map[string]any{"x": 1}, 50*time.Millisecond)
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "slow_op", timeoutErr.Op)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	assert.Less(t, elapsed, 5*time.Second)

	// the timed-out request must not linger and block later correlation
	b.mu.Lock()
	assert.Empty(t, b.queue)
	b.mu.Unlock()
}

func TestTimeoutRemovesRequestMidQueue(t *testing.T) {
	b := newTestBridge(t, silentLauncher())

	req1, err := b.send("op1", map[string]any{}, time.Minute)
	require.NoError(t, err)
	req2, err := b.send("op2", map[string]any{}, 50*time.Millisecond)
	require.NoError(t, err)
	req3, err := b.send("op3", map[string]any{}, time.Minute)
	require.NoError(t, err)

	res := <-req2.done
	var timeoutErr *TimeoutError
	require.ErrorAs(t, res.err, &timeoutErr)

	b.mu.Lock()
	require.Len(t, b.queue, 2)
	assert.Same(t, req1, b.queue[0])
	assert.Same(t, req3, b.queue[1])
	b.mu.Unlock()
}

func TestWorkerExitFailsPendingAndRestarts(t *testing.T) {
	// each response takes a second, so requests linger in flight
	b := newTestBridge(t, shLauncher(`while read line; do sleep 1; echo '{"ok":true}'; done`),
		WithRestartDelay(20*time.Millisecond))

	reqs := make([]*pendingRequest, 3)
	for i := range reqs {
		req, err := b.send("op", map[string]any{"i": i}, time.Minute)
		require.NoError(t, err)
		reqs[i] = req
	}

	b.mu.Lock()
	w := b.worker
	b.mu.Unlock()
	require.NotNil(t, w)
	require.NoError(t, w.Kill())

	for _, req := range reqs {
		res := <-req.done
		var exitErr *ProcessExitedError
		require.ErrorAs(t, res.err, &exitErr)
	}

	// after the restart delay a fresh worker serves calls again
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.worker != nil
	}, 5*time.Second, 10*time.Millisecond)

	res, err := b.Call(context.Background(), "op", map[string]any{"i": 4}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, true, res["ok"])
}

func TestRestartBudgetExhaustion(t *testing.T) {
	b := newTestBridge(t, shLauncher("exit 1"),
		WithMaxRestarts(2), WithRestartDelay(5*time.Millisecond))

	require.Eventually(t, b.Degraded, 5*time.Second, 5*time.Millisecond)

	_, err := b.Call(context.Background(), "op", map[string]any{}, time.Second)
	require.ErrorIs(t, err, ErrProcessUnavailable)
}

func TestCloseIsIdempotent(t *testing.T) {
	b, err := New(echoLauncher(), WithLogger(testLogger))
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Call(context.Background(), "op", map[string]any{}, time.Second)
	require.ErrorIs(t, err, ErrProcessUnavailable)

	// no restart after close
	time.Sleep(100 * time.Millisecond)
	b.mu.Lock()
	assert.Nil(t, b.worker)
	assert.Zero(t, b.restarts)
	b.mu.Unlock()
}

func TestDecodeFailureRejectsRequest(t *testing.T) {
	b := newTestBridge(t, shLauncher(`while read line; do echo '@@@ totally unparseable @@@'; done`))

	_, err := b.Call(context.Background(), "op", map[string]any{}, time.Minute)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "@@@ totally unparseable @@@", decodeErr.Frame)
}

func TestUnsolicitedFrameIsDiscarded(t *testing.T) {
	b := newTestBridge(t, shLauncher(`echo '{"spurious":1}'; exec cat`))

	// let the out-of-band frame arrive while nothing is pending
	time.Sleep(200 * time.Millisecond)

	res, err := b.Call(context.Background(), "echo", map[string]any{"msg": "real"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "real", res["msg"])
}

func TestWarmupDoesNotDisturbCorrelation(t *testing.T) {
	b := newTestBridge(t, echoLauncher(), WithWarmup(map[string]any{"command": "warmup"}))

	res, err := b.Call(context.Background(), "echo", map[string]any{"msg": "after-warmup"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "after-warmup", res["msg"])
}

func TestAbandonedCallKeepsQueueSlot(t *testing.T) {
	b := newTestBridge(t, silentLauncher())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Call(ctx, "op", map[string]any{}, time.Minute)
	require.ErrorIs(t, err, context.Canceled)

	b.mu.Lock()
	assert.Len(t, b.queue, 1)
	b.mu.Unlock()
}

func TestWriteFailureDoesNotEnqueue(t *testing.T) {
	b := newTestBridge(t, shLauncher("sleep 30"))

	b.mu.Lock()
	require.NoError(t, b.worker.Stdin.Close())
	b.mu.Unlock()

	_, err := b.send("op", map[string]any{}, time.Minute)
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)

	b.mu.Lock()
	assert.Empty(t, b.queue)
	b.mu.Unlock()
}

func TestStats(t *testing.T) {
	b := newTestBridge(t, echoLauncher())

	stats, err := b.Stats()
	require.NoError(t, err)
	assert.Greater(t, stats.PID, 0)
	assert.Zero(t, stats.Restarts)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	b := newTestBridge(t, echoLauncher(), WithMetrics(m))

	_, err := b.Call(context.Background(), "echo", map[string]any{"msg": "x"}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))
}
