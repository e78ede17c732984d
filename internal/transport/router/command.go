package router

import (
	"context"
	"time"

	"calbot/internal/transport"
	"calbot/pkg/chatui"
	"calbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

// Decision is a guard verdict. Reason is sent to the caller on deny.
type Decision struct {
	Allow  bool
	Reason string
}

func Allow() Decision             { return Decision{Allow: true} }
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Guard decides whether a request may reach its handler.
type Guard func(ctx context.Context, req *Request) Decision

type Command struct {
	Name        string
	Aliases     []string
	Category    string // help grouping
	Description string
	Usage       string // arguments only, e.g. "<task> [chat_id]"
	MinArgs     int
	Guards      []Guard
	Timeout     time.Duration
	Handle      HandlerFunc
}

type Request struct {
	Update       transport.Update
	Chat         transport.ChatTarget
	FromID       int64
	FromUsername string
	IsGroup      bool

	Command   string
	Prefix    string
	Args      []string
	RawArgs   []string
	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string
	Received  time.Time

	Adapter transport.Adapter
	Logger  logx.Logger
}

// Channel is the chat the request came from.
func (r *Request) Channel() transport.Channel {
	return transport.NewChannel(r.Adapter, r.Chat, "")
}

// Reply sends plain text to the requesting chat.
func (r *Request) Reply(ctx context.Context, text string) (transport.MessageRef, error) {
	return r.Adapter.SendText(ctx, r.Chat, text, &transport.SendOptions{DisablePreview: true})
}

// ReplyCard sends a rendered card to the requesting chat.
func (r *Request) ReplyCard(ctx context.Context, m chatui.Message) (transport.MessageRef, error) {
	return m.Send(ctx, r.Channel())
}
