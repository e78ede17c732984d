package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calbot/internal/runtime/supervisor"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

const DefaultPrefix = "/"

// CommandManager parses incoming messages into commands and runs them on a
// bounded worker pool.
type CommandManager struct {
	mu      sync.RWMutex
	prefix  string
	botName string
	cmds    map[string]*Command // name and aliases
	ordered []*Command
	timeout time.Duration

	log     logx.Logger
	adapter transport.Adapter
	jobs    chan func()
}

func NewCommandManager(log logx.Logger, adapter transport.Adapter, prefix string) *CommandManager {
	m := &CommandManager{
		cmds:    map[string]*Command{},
		log:     log,
		adapter: adapter,
		jobs:    make(chan func(), 256),
	}
	m.SetPrefix(prefix)
	return m
}

// SetPrefix changes the command prefix. Empty means "/".
func (m *CommandManager) SetPrefix(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	m.mu.Lock()
	m.prefix = prefix
	m.mu.Unlock()
}

func (m *CommandManager) Prefix() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefix
}

// SetBotUsername makes the manager ignore commands addressed to other bots
// ("/today@otherbot").
func (m *CommandManager) SetBotUsername(name string) {
	m.mu.Lock()
	m.botName = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	m.mu.Unlock()
}

// SetDefaultTimeout bounds handlers that do not set their own timeout.
func (m *CommandManager) SetDefaultTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// SetRegistry replaces the command set. A help command is always added.
func (m *CommandManager) SetRegistry(cmds []Command) {
	cmds = append(cmds, Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Category:    "Basic",
		Description: "Show available commands",
		Usage:       "[command]",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := req.ReplyCard(ctx, m.helpMessage(req.Prefix, req.Args))
			return err
		},
	})

	index := map[string]*Command{}
	ordered := make([]*Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		if _, dup := index[name]; dup {
			m.log.Warn("duplicate command ignored", logx.String("cmd", name))
			continue
		}
		c.Name = name
		index[name] = c
		ordered = append(ordered, c)
	}
	for _, c := range ordered {
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.ContainsAny(a, " \t") {
				continue
			}
			if _, taken := index[a]; !taken {
				index[a] = c
			}
		}
	}

	m.mu.Lock()
	m.cmds = index
	m.ordered = ordered
	m.mu.Unlock()
}

// Commands returns the registered commands in registration order.
func (m *CommandManager) Commands() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Command, 0, len(m.ordered))
	for _, c := range m.ordered {
		out = append(out, *c)
	}
	return out
}

// PublishMenu pushes the command list to the chat client's command menu when
// the adapter supports it and the prefix is "/".
func (m *CommandManager) PublishMenu(ctx context.Context) error {
	up, ok := m.adapter.(transport.CommandMenuUpdater)
	if !ok || m.Prefix() != DefaultPrefix {
		return nil
	}
	return up.UpdateMenuCommands(ctx, buildMenu(m.Commands()))
}

func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop reads updates until ctx is done or updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	workers := max(runtime.NumCPU(), 2)
	sup := supervisor.New(ctx, supervisor.WithLogger(m.log))

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					m.runJob(idx, job)
				}
			}
		}, supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}
	m.log.Info("command dispatcher started", logx.Int("workers", workers))

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == transport.UpdateMessage && up.Message != nil {
				m.routeMessage(ctx, up)
			}
		}
	}
}

func (m *CommandManager) runJob(worker int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
		}
	}()
	job()
}

func (m *CommandManager) routeMessage(ctx context.Context, up transport.Update) {
	msg := up.Message
	parts := tokenizeCommandLine(strings.TrimSpace(msg.Text))
	if len(parts) == 0 {
		return
	}

	m.mu.RLock()
	prefix, botName, timeout := m.prefix, m.botName, m.timeout
	m.mu.RUnlock()

	name, mention, ok := splitCommandWord(parts[0], prefix)
	if !ok {
		return
	}
	if mention != "" && botName != "" && !strings.EqualFold(mention, botName) {
		return
	}
	chat := transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	m.mu.RLock()
	cmd := m.cmds[name]
	m.mu.RUnlock()
	if cmd == nil {
		_, _ = m.adapter.SendText(ctx, chat, "❌ Unknown command. Use "+prefix+"help to see available commands.", nil)
		return
	}

	raw := parts[1:]
	pos, flags, bools := parseFlags(raw)
	rid := uuid.NewString()
	reqLog := m.log.With(
		logx.String("rid", rid),
		logx.Int64("chat_id", msg.ChatID),
		logx.Int64("from_id", msg.FromID),
		logx.String("cmd", cmd.Name),
	)
	req := &Request{
		Update:       up,
		Chat:         chat,
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		IsGroup:      msg.IsGroup,
		Command:      cmd.Name,
		Prefix:       prefix,
		Args:         pos,
		RawArgs:      raw,
		Flags:        flags,
		BoolFlags:    bools,
		ReqID:        rid,
		Received:     time.Now(),
		Adapter:      m.adapter,
		Logger:       reqLog,
	}

	to := cmd.Timeout
	if to <= 0 {
		to = timeout
	}
	final := Chain(cmd.Handle,
		MWPanicRecover(),
		MWRequestLog(),
		MWGuards(cmd.Guards...),
		MWMinArgs(cmd.MinArgs),
		MWTimeout(to),
	)
	if !m.tryEnqueue(func() { _ = final(ctx, req) }) {
		_, _ = m.adapter.SendText(ctx, chat, "⏳ Busy, try again in a moment.", nil)
	}
}
