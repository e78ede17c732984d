package commands

import (
	"context"

	"calbot/internal/transport/router"
	"calbot/pkg/logx"
)

const (
	msgNotAuthorized   = "❌ You are not authorized to use this command"
	msgNoScheduler     = "❌ Scheduler service not available"
	msgNeedsChatAdmin  = "❌ You need to be a chat administrator to use this command"
	msgAdminCheckError = "❌ Could not verify your chat permissions, try again later"
)

// Authorized allows callers listed in the authorized user set.
func (s *Set) Authorized() router.Guard {
	return func(_ context.Context, req *router.Request) router.Decision {
		if s.d.Authorized(req.FromID) {
			return router.Allow()
		}
		return router.Deny(msgNotAuthorized)
	}
}

// SchedulerAvailable denies when the scheduler dependency is absent.
func (s *Set) SchedulerAvailable() router.Guard {
	return func(context.Context, *router.Request) router.Decision {
		if s.d.Scheduler == nil {
			return router.Deny(msgNoScheduler)
		}
		return router.Allow()
	}
}

// ChatAdmin allows chat administrators and authorized users. Private chats
// always pass: the caller owns the conversation.
func (s *Set) ChatAdmin() router.Guard {
	return func(ctx context.Context, req *router.Request) router.Decision {
		if !req.IsGroup || s.d.Authorized(req.FromID) {
			return router.Allow()
		}
		if s.d.Admins == nil {
			return router.Deny(msgNeedsChatAdmin)
		}
		ok, err := s.d.Admins.IsChatAdmin(ctx, req.Chat.ChatID, req.FromID)
		if err != nil {
			req.Logger.Warn("admin lookup failed", logx.Int64("chat_id", req.Chat.ChatID), logx.Err(err))
			return router.Deny(msgAdminCheckError)
		}
		if !ok {
			return router.Deny(msgNeedsChatAdmin)
		}
		return router.Allow()
	}
}
