package router

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"calbot/pkg/logx"
)

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req.Logger.Error("panic recovered", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			d := time.Since(start)
			if err != nil {
				req.Logger.Warn("request failed", logx.Duration("dur", d), logx.Err(err))
				return err
			}
			if d >= 750*time.Millisecond {
				req.Logger.Info("request ok", logx.Duration("dur", d))
			} else {
				req.Logger.Debug("request ok", logx.Duration("dur", d))
			}
			return nil
		}
	}
}

// MWGuards runs guards in order. The first deny is replied to the caller and
// stops the chain.
func MWGuards(guards ...Guard) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			for _, g := range guards {
				if g == nil {
					continue
				}
				if d := g(ctx, req); !d.Allow {
					req.Logger.Debug("request denied", logx.String("reason", d.Reason))
					if d.Reason != "" {
						_, _ = req.Reply(ctx, d.Reason)
					}
					return nil
				}
			}
			return next(ctx, req)
		}
	}
}

// MWMinArgs rejects requests with fewer than n positional arguments.
func MWMinArgs(n int) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if len(req.Args) < n {
				_, _ = req.Reply(ctx, fmt.Sprintf("❌ Missing required argument. Use %shelp %s for command usage.", req.Prefix, req.Command))
				return nil
			}
			return next(ctx, req)
		}
	}
}
