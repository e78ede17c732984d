// Package telegram connects the bot to Telegram through telebot long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"calbot/internal/runtime/supervisor"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter implements transport.Adapter, transport.Resolver,
// transport.AdminChecker and transport.CommandMenuUpdater.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot
	out atomic.Value // chan<- transport.Update

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor

	readyOnce sync.Once
	ready     chan struct{}

	dropped atomic.Uint64

	menuMu   sync.Mutex
	menuHash uint64
}

var (
	_ transport.Adapter            = (*Adapter)(nil)
	_ transport.Resolver           = (*Adapter)(nil)
	_ transport.AdminChecker       = (*Adapter)(nil)
	_ transport.CommandMenuUpdater = (*Adapter)(nil)
)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	a := &Adapter{cfg: cfg, log: log, bot: b, ready: make(chan struct{})}
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.bot.Handle(tele.OnText, a.onText)
	return a, nil
}

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat == nil {
		return nil
	}
	msg := &transport.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		Text:     m.Text,
		IsGroup:  m.Chat.Type != tele.ChatPrivate,
	}
	if m.Sender != nil {
		msg.FromID = m.Sender.ID
		msg.FromUsername = m.Sender.Username
	}
	a.push(transport.Update{Kind: transport.UpdateMessage, Message: msg})
	return nil
}

func (a *Adapter) push(up transport.Update) {
	out, _ := a.out.Load().(chan<- transport.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		a.dropped.Add(1)
	}
}

// Ready is closed once polling has started.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Username is the bot's own @name, without the "@".
func (a *Adapter) Username() string {
	if a.bot.Me == nil {
		return ""
	}
	return a.bot.Me.Username
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("updates.drop_report", func(c context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		report := func() {
			if n := a.dropped.Swap(0); n > 0 {
				a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-c.Done():
				report()
				return
			case <-t.C:
				report()
			}
		}
	})

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	sup.GoRestart0("telebot.poll", func(c context.Context) {
		a.readyOnce.Do(func() { close(a.ready) })
		a.log.Info("polling started", logx.String("bot", a.bot.Me.Username))
		a.bot.Start()
		a.log.Info("polling stopped")
	},
		supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		supervisor.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	a.log.Info("stopping")
	sup.Cancel()

	// getUpdates may be mid long-poll; do not hold shutdown for it.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		a.log.Warn("telegram stop incomplete", logx.Err(err))
	}
	return nil
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}

	var first transport.MessageRef
	for i, chunk := range splitText(text, textLimit, opt.ParseMode) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// EditText edits the referenced message. Overflow beyond one message is sent
// as follow-up messages.
func (a *Adapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chunks := splitText(text, textLimit, opt.ParseMode)
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	if _, err := a.bot.Edit(m, chunks[0], &tele.SendOptions{ParseMode: opt.ParseMode, DisableWebPagePreview: opt.DisablePreview}); err != nil {
		return err
	}
	if len(chunks) == 1 {
		return nil
	}
	_, err := a.SendText(ctx, transport.ChatTarget{ChatID: ref.ChatID, ThreadID: ref.ThreadID}, strings.Join(chunks[1:], "\n"), opt)
	return err
}

// ResolveChannel looks the chat up on Telegram. Unknown chats and chats the
// bot cannot see return an error.
func (a *Adapter) ResolveChannel(ctx context.Context, id int64) (transport.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chat, err := a.bot.ChatByID(id)
	if err != nil {
		return nil, fmt.Errorf("resolve chat %d: %w", id, err)
	}
	return transport.NewChannel(a, transport.ChatTarget{ChatID: chat.ID}, chatTitle(chat)), nil
}

func chatTitle(c *tele.Chat) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	default:
		return strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
}

func (a *Adapter) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	members, err := a.bot.AdminsOf(&tele.Chat{ID: chatID})
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.User != nil && m.User.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// UpdateMenuCommands publishes the command menu. It is a no-op when the list
// has not changed since the last successful call.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []transport.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	list := menuCommands(cmds)
	sum := menuHash(list)
	if sum == a.menuHash {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.bot.SetCommands(list); err != nil {
		return fmt.Errorf("telegram setMyCommands: %w", err)
	}
	a.menuHash = sum
	a.log.Info("menu commands updated", logx.Int("count", len(list)))
	return nil
}

// menuCommands applies Telegram's limits: at most 100 commands, descriptions
// of 1..256 characters.
func menuCommands(cmds []transport.BotCommand) []tele.Command {
	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		if r := []rune(d); len(r) > 256 {
			d = string(r[:256])
		}
		out = append(out, tele.Command{Text: c.Command, Description: d})
		if len(out) == 100 {
			break
		}
	}
	return out
}

func menuHash(cmds []tele.Command) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		_, _ = h.Write([]byte(c.Text))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(c.Description))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
