// Package bridge is the typed request/response layer between the sandboxed
// UI process and the privileged host. Requests arrive on named channels from
// a closed, pre-registered set; every request passes the rate limit
// middleware before reaching its handler, and all failures carry a
// structured error code plus parameters so the UI can render something
// actionable.
package bridge

import (
	"context"
	"fmt"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/internal/ratelimit"
	"github.com/hearthdesk/hearth/logging"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// Handler serves one channel. Handlers must not block the dispatch path;
// long-running work starts in the background and reports on push channels.
type Handler func(ctx context.Context, payload map[string]interface{}) (interface{}, error)

// Dispatcher routes requests through the rate limiter to registered handlers.
type Dispatcher struct {
	handlers map[string]Handler
	limiter  *ratelimit.Limiter
	logger   *logrus.Entry
}

// NewDispatcher creates a Dispatcher guarding its channels with limiter.
func NewDispatcher(limiter *ratelimit.Limiter) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		limiter:  limiter,
		logger:   logging.NewLogger("bridge"),
	}
}

// Register binds a handler to a channel name. Registration happens once at
// startup; the channel set is fixed afterwards.
func (d *Dispatcher) Register(channel string, handler Handler) {
	if _, exists := d.handlers[channel]; exists {
		panic(fmt.Sprintf("bridge: channel %q registered twice", channel))
	}
	d.handlers[channel] = handler
}

// Dispatch routes one request. Unknown channels fail with CHANNEL_UNKNOWN;
// rate-limited requests fail with RATE_LIMIT_EXCEEDED carrying the retry
// delay and never reach the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, channel string, payload map[string]interface{}) (interface{}, error) {
	handler, ok := d.handlers[channel]
	if !ok {
		return nil, errors.ChannelUnknown(channel)
	}

	if !d.limiter.Check(channel) {
		retryAfter := d.limiter.RemainingWait(channel)
		d.logger.WithFields(logrus.Fields{
			"channel":      channel,
			"retryAfterMs": retryAfter.Milliseconds(),
		}).Warn("Rate limit exceeded")
		return nil, errors.RateLimitExceeded(channel, retryAfter)
	}

	result, err := handler(ctx, payload)
	if err != nil {
		d.logger.WithError(err).WithField("channel", channel).Debug("Handler failed")
		return nil, err
	}
	return result, nil
}

// Channels returns the registered channel names.
func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.handlers))
	for ch := range d.handlers {
		out = append(out, ch)
	}
	return out
}

// DecodePayload converts a generic request payload into the channel's typed
// request struct, reading json tag names so the wire shape and the Go shape
// stay in lockstep.
func DecodePayload(channel string, payload map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create payload decoder")
	}
	if err := decoder.Decode(payload); err != nil {
		return errors.InvalidRequest(channel, err.Error())
	}
	return nil
}
