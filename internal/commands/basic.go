package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"calbot/internal/transport"
	"calbot/internal/transport/router"
	"calbot/pkg/chatui"
)

func (s *Set) basic() []router.Command {
	return []router.Command{
		{
			Name:        "hello",
			Category:    CategoryBasic,
			Description: "Simple hello command to test the bot",
			Handle:      s.cmdHello,
		},
		{
			Name:        "ping",
			Category:    CategoryBasic,
			Description: "Check bot latency",
			Handle:      s.cmdPing,
		},
		{
			Name:        "myid",
			Category:    CategoryBasic,
			Description: "Get your Telegram user ID",
			Handle:      s.cmdMyID,
		},
	}
}

func (s *Set) cmdHello(ctx context.Context, req *router.Request) error {
	text := "Hello " + mention(req).String() + "! 👋"
	_, err := req.Adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

// mention renders @username, or a user link when the caller has none.
func mention(req *router.Request) chatui.H {
	if req.FromUsername != "" {
		return chatui.Esc("@" + req.FromUsername)
	}
	return chatui.Raw(fmt.Sprintf(`<a href="tg://user?id=%d">%d</a>`, req.FromID, req.FromID))
}

// cmdPing measures the round trip of one send and edits the reply with it.
func (s *Set) cmdPing(ctx context.Context, req *router.Request) error {
	start := s.now()
	ref, err := req.Reply(ctx, "Pong! 🏓")
	if err != nil {
		return err
	}
	latency := s.now().Sub(start).Round(time.Millisecond)
	return req.Adapter.EditText(ctx, ref, fmt.Sprintf("Pong! 🏓 Latency: %dms", latency.Milliseconds()), &transport.SendOptions{DisablePreview: true})
}

func (s *Set) cmdMyID(ctx context.Context, req *router.Request) error {
	text := "Your Telegram ID is: " + chatui.Code(strconv.FormatInt(req.FromID, 10)).String()
	_, err := req.Adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: "HTML"})
	return err
}
