package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStrategy struct {
	name    string
	url     string
	err     error
	started *[]string
	cleaned *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Start(ctx context.Context) (string, func(), error) {
	*s.started = append(*s.started, s.name)
	if s.err != nil {
		return "", nil, s.err
	}
	return s.url, func() { *s.cleaned++ }, nil
}

type nopHandle struct{ url string }

func (h nopHandle) Navigate(context.Context, string) error { return nil }
func (h nopHandle) WaitElement(context.Context, string, time.Duration) error { return nil }
func (h nopHandle) HasElement(context.Context, string) (bool, error) { return true, nil }
func (h nopHandle) SetValue(context.Context, string, string) error { return nil }
func (h nopHandle) Click(context.Context, string) error { return nil }
func (h nopHandle) WaitURLContains(context.Context, string, time.Duration) error { return nil }
func (h nopHandle) Close() error { return nil }

func TestAcquirer_StopsAtFirstSuccess(t *testing.T) {
	var started []string
	var cleaned int

	strategies := []Strategy{
		stubStrategy{name: "remote", err: ErrNotApplicable, started: &started, cleaned: &cleaned},
		stubStrategy{name: "binary", url: "ws://binary", started: &started, cleaned: &cleaned},
		stubStrategy{name: "system", url: "ws://system", started: &started, cleaned: &cleaned},
	}
	connect := func(ctx context.Context, u string, cleanup func()) (Handle, error) {
		return nopHandle{url: u}, nil
	}

	a := NewAcquirerWith(strategies, connect, zap.NewNop())
	h, err := a.Acquire(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ws://binary", h.(nopHandle).url)
	assert.Equal(t, []string{"remote", "binary"}, started)
	assert.Zero(t, cleaned)
}

func TestAcquirer_CleansUpWhenConnectFails(t *testing.T) {
	var started []string
	var cleaned int

	strategies := []Strategy{
		stubStrategy{name: "binary", url: "ws://broken", started: &started, cleaned: &cleaned},
		stubStrategy{name: "system", url: "ws://ok", started: &started, cleaned: &cleaned},
	}
	connect := func(ctx context.Context, u string, cleanup func()) (Handle, error) {
		if u == "ws://broken" {
			return nil, errors.New("handshake failed")
		}
		return nopHandle{url: u}, nil
	}

	h, err := NewAcquirerWith(strategies, connect, zap.NewNop()).Acquire(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ws://ok", h.(nopHandle).url)
	assert.Equal(t, 1, cleaned)
}

func TestAcquirer_AllStrategiesFail(t *testing.T) {
	var started []string
	var cleaned int
	boom := errors.New("not installed")

	strategies := []Strategy{
		stubStrategy{name: "remote", err: ErrNotApplicable, started: &started, cleaned: &cleaned},
		stubStrategy{name: "system", err: boom, started: &started, cleaned: &cleaned},
	}
	connect := func(ctx context.Context, u string, cleanup func()) (Handle, error) {
		t.Fatal("connect must not be called")
		return nil, nil
	}

	h, err := NewAcquirerWith(strategies, connect, zap.NewNop()).Acquire(context.Background())

	require.Error(t, err)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrNotApplicable)

	var acqErr *AcquireError
	require.True(t, errors.As(err, &acqErr))
	assert.Equal(t, "remote", acqErr.Strategy)
}

func TestAcquirer_StopsOnCancelledContext(t *testing.T) {
	var started []string
	var cleaned int
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	strategies := []Strategy{
		stubStrategy{name: "system", url: "ws://x", started: &started, cleaned: &cleaned},
	}
	connect := func(ctx context.Context, u string, cleanup func()) (Handle, error) {
		return nopHandle{}, nil
	}

	_, err := NewAcquirerWith(strategies, connect, zap.NewNop()).Acquire(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, started)
}

func TestDefaultStrategies_Order(t *testing.T) {
	names := []string{}
	for _, s := range DefaultStrategies(Options{}) {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"remote-debugger", "configured-binary", "search-paths", "system-browser", "managed-browser"}, names)
}

func TestBinaryStrategies_NotApplicableWithoutPaths(t *testing.T) {
	_, _, err := remoteStrategy{}.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotApplicable)

	_, _, err = binaryStrategy{name: "configured-binary"}.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotApplicable)

	_, _, err = binaryStrategy{name: "search-paths", paths: []string{"/definitely/not/here/chrome"}}.Start(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotApplicable)
}
