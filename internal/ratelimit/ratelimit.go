// Package ratelimit implements fixed-window admission control for bridge
// channels. Each channel has independent state; channels without a registered
// policy fall back to the default.
package ratelimit

import (
	"sync"
	"time"
)

// Policy describes the fixed-window budget for one channel.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultPolicy applies to any channel without an explicit entry.
var DefaultPolicy = Policy{Window: time.Second, MaxRequests: 100}

// DefaultPolicies is the built-in per-channel policy table.
var DefaultPolicies = map[string]Policy{
	"cli:execute":     {Window: time.Second, MaxRequests: 5},
	"approval:submit": {Window: time.Second, MaxRequests: 5},
	"file:read":       {Window: time.Second, MaxRequests: 100},
}

// channelState is the mutable window counter for one channel.
// Its own mutex keeps unrelated channels from serializing on each other.
type channelState struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// Limiter holds per-channel fixed-window counters. Construct one per host
// process; tests construct their own for isolation.
type Limiter struct {
	mu       sync.Mutex
	policies map[string]Policy
	states   map[string]*channelState

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates a Limiter with the built-in policy table, applying any
// per-channel overrides on top.
func New(overrides map[string]Policy) *Limiter {
	policies := make(map[string]Policy, len(DefaultPolicies)+len(overrides))
	for ch, p := range DefaultPolicies {
		policies[ch] = p
	}
	for ch, p := range overrides {
		policies[ch] = p
	}
	return &Limiter{
		policies: policies,
		states:   make(map[string]*channelState),
		now:      time.Now,
	}
}

// Policy returns the effective policy for a channel.
func (l *Limiter) Policy(channel string) Policy {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.policies[channel]; ok {
		return p
	}
	return DefaultPolicy
}

// Check admits or rejects one request on the channel. The window resets when
// the current time passes its end; within a window, at most MaxRequests are
// admitted. Rejected requests do not increment the counter.
func (l *Limiter) Check(channel string) bool {
	policy := l.Policy(channel)
	st := l.state(channel)

	st.mu.Lock()
	defer st.mu.Unlock()

	now := l.clock()()
	if st.windowStart.IsZero() || now.Sub(st.windowStart) >= policy.Window {
		st.windowStart = now
		st.count = 0
	}

	if st.count < policy.MaxRequests {
		st.count++
		return true
	}
	return false
}

// RemainingWait returns how long until the channel's current window expires.
// It returns zero for a channel with no state and zero once a window has
// naturally expired, even without an intervening Check call.
func (l *Limiter) RemainingWait(channel string) time.Duration {
	l.mu.Lock()
	st, ok := l.states[channel]
	l.mu.Unlock()
	if !ok {
		return 0
	}

	policy := l.Policy(channel)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.windowStart.IsZero() {
		return 0
	}
	remaining := policy.Window - l.clock()().Sub(st.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears a channel's state so its next Check behaves like the first.
func (l *Limiter) Reset(channel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, channel)
}

// ResetAll clears every channel's state. Used at teardown and by tests.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = make(map[string]*channelState)
}

// SetPolicies replaces the per-channel overrides on top of the defaults and
// clears accumulated window state so the new policies take effect
// immediately. Used when the host config is reloaded.
func (l *Limiter) SetPolicies(overrides map[string]Policy) {
	policies := make(map[string]Policy, len(DefaultPolicies)+len(overrides))
	for ch, p := range DefaultPolicies {
		policies[ch] = p
	}
	for ch, p := range overrides {
		policies[ch] = p
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.policies = policies
	l.states = make(map[string]*channelState)
}

// SetClock replaces the limiter's time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// clock returns the current time source under the registry lock.
func (l *Limiter) clock() func() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// state returns the channel's counter, creating it lazily on first use.
func (l *Limiter) state(channel string) *channelState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[channel]
	if !ok {
		st = &channelState{}
		l.states[channel] = st
	}
	return st
}
