package transport

import "context"

type UpdateKind string

const UpdateMessage UpdateKind = "message"

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
}

// Channel is a live destination for outgoing messages.
type Channel interface {
	Target() ChatTarget
	Title() string
	Send(ctx context.Context, text string, opt *SendOptions) (MessageRef, error)
}

// Resolver turns channel ids into live channels once the connection is up.
type Resolver interface {
	// Ready is closed once the chat connection is able to resolve channels.
	Ready() <-chan struct{}
	ResolveChannel(ctx context.Context, id int64) (Channel, error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}

// AdminChecker is implemented by adapters that can tell chat administrators apart.
type AdminChecker interface {
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}
