package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesToHandler(t *testing.T) {
	d := NewDispatcher(ratelimit.New(nil))

	var got map[string]interface{}
	d.Register("test:echo", func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		got = payload
		return map[string]string{"pong": "yes"}, nil
	})

	result, err := d.Dispatch(context.Background(), "test:echo", map[string]interface{}{"ping": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pong": "yes"}, result)
	assert.Equal(t, true, got["ping"])
}

func TestDispatchUnknownChannel(t *testing.T) {
	d := NewDispatcher(ratelimit.New(nil))

	_, err := d.Dispatch(context.Background(), "nope:nothing", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeChannelUnknown))
}

func TestDispatchRateLimit(t *testing.T) {
	limiter := ratelimit.New(map[string]ratelimit.Policy{
		"test:tight": {Window: time.Second, MaxRequests: 2},
	})
	d := NewDispatcher(limiter)

	calls := 0
	d.Register("test:tight", func(ctx context.Context, payload map[string]interface{}) (interface{}, error) {
		calls++
		return nil, nil
	})

	ctx := context.Background()
	_, err := d.Dispatch(ctx, "test:tight", nil)
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "test:tight", nil)
	require.NoError(t, err)

	// Third request is rejected and never reaches the handler
	_, err = d.Dispatch(ctx, "test:tight", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRateLimitExceeded))
	assert.Equal(t, 2, calls)

	// The failure carries channel and retry delay for the UI
	herr := err.(*errors.HearthError)
	assert.Equal(t, "test:tight", herr.Details["channel"])
	retryMs, ok := herr.Details["retryAfterMs"].(int64)
	require.True(t, ok)
	assert.Greater(t, retryMs, int64(0))
	assert.LessOrEqual(t, retryMs, int64(1000))
}

func TestDecodePayload(t *testing.T) {
	var req struct {
		Command     string `json:"command"`
		ProjectPath string `json:"projectPath"`
		MaxSize     int64  `json:"maxSize"`
	}

	err := DecodePayload("test:decode", map[string]interface{}{
		"command":     "echo hi",
		"projectPath": "/tmp/p",
		"maxSize":     float64(1024), // JSON numbers arrive as float64
	}, &req)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", req.Command)
	assert.Equal(t, "/tmp/p", req.ProjectPath)
	assert.Equal(t, int64(1024), req.MaxSize)
}

func TestDecodePayloadInvalid(t *testing.T) {
	var req struct {
		Count int `json:"count"`
	}
	err := DecodePayload("test:decode", map[string]interface{}{"count": "not-a-number"}, &req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest))
}
