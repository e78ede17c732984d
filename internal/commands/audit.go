package commands

import (
	"context"
	"time"

	"calbot/internal/storage"
	"calbot/internal/transport/router"
	"calbot/pkg/logx"
)

// audit records a mutating command. Storage failures are logged only.
func (s *Set) audit(ctx context.Context, req *router.Request, target, detail string, err error) {
	if s.d.Store == nil {
		return
	}
	e := storage.AuditEntry{
		At:            s.now(),
		ActorID:       req.FromID,
		ActorUsername: req.FromUsername,
		ChatID:        req.Chat.ChatID,
		ThreadID:      req.Chat.ThreadID,
		Command:       req.Command,
		Target:        target,
		Detail:        detail,
		OK:            err == nil,
	}
	if err != nil {
		e.Error = err.Error()
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if werr := s.d.Store.AppendAudit(actx, e); werr != nil {
		s.d.Log.Warn("audit append failed", logx.String("command", req.Command), logx.Err(werr))
	}
}
