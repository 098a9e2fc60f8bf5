// Package readiness polls a TCP address until something accepts connections.
package readiness

import (
	"context"
	"log/slog"
	"net"
	"time"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
	"git.home.luguber.info/inful/axislauncher/internal/retry"
)

// Options tunes WaitReady.
type Options struct {
	Timeout        time.Duration // overall budget for connection attempts
	ConnectTimeout time.Duration // per-attempt dial timeout
	Interval       time.Duration // pause between failed attempts
	SettleDelay    time.Duration // pause after the first success before reporting ready
}

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Poller checks readiness of an address.
type Poller struct {
	dialer Dialer
	now    func() time.Time
}

// New returns a Poller using dialer, or a plain net.Dialer when nil.
func New(dialer Dialer) *Poller {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &Poller{dialer: dialer, now: time.Now}
}

// WaitReady polls addr with the default dialer. See Poller.WaitReady.
func WaitReady(ctx context.Context, addr string, opts Options) bool {
	return New(nil).WaitReady(ctx, addr, opts)
}

// WaitReady reports whether addr accepted a TCP connection before opts.Timeout
// elapsed. A successful attempt is closed at once and followed by SettleDelay.
// Failed attempts wait Interval before retrying. Cancelling ctx returns false.
func (p *Poller) WaitReady(ctx context.Context, addr string, opts Options) bool {
	backoff := retry.Fixed(opts.Interval)
	settle := retry.Fixed(opts.SettleDelay)
	start := p.now()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if p.Probe(ctx, addr, opts.ConnectTimeout) {
			slog.Debug("Server accepted connection", logfields.Addr(addr), logfields.Attempts(attempt), logfields.Elapsed(start))
			return settle.Wait(ctx, 1) == nil
		}
		remaining := opts.Timeout - p.now().Sub(start)
		if remaining <= 0 {
			slog.Debug("Readiness timeout", logfields.Addr(addr), logfields.Attempts(attempt), logfields.Elapsed(start))
			return false
		}
		if !pause(ctx, backoff, attempt, remaining) {
			return false
		}
	}
}

// pause waits out the policy delay, cut short when budget runs out first.
// It returns false only when ctx itself ended.
func pause(ctx context.Context, policy retry.Policy, attempt int, budget time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	if err := policy.Wait(waitCtx, attempt); err != nil && ctx.Err() != nil {
		return false
	}
	return true
}

// Probe makes a single connection attempt, closing the connection on success.
func (p *Poller) Probe(ctx context.Context, addr string, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
