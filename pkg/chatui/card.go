package chatui

import (
	"context"
	"strings"

	"calbot/internal/transport"
)

// Color tags a card with a badge in front of its title.
type Color int

const (
	ColorNone Color = iota
	ColorGreen
	ColorBlue
	ColorRed
	ColorOrange
)

func (c Color) badge() string {
	switch c {
	case ColorGreen:
		return "🟩"
	case ColorBlue:
		return "🟦"
	case ColorRed:
		return "🟥"
	case ColorOrange:
		return "🟧"
	}
	return ""
}

// Message is a rendered card plus follow-up messages.
type Message struct {
	Text string
	Opt  *transport.SendOptions
	More []string
}

// Send delivers the message through ch. Follow-ups go after the first one.
func (m Message) Send(ctx context.Context, ch transport.Channel) (transport.MessageRef, error) {
	ref, err := ch.Send(ctx, m.Text, m.opt())
	if err != nil {
		return ref, err
	}
	for _, t := range m.More {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, err := ch.Send(ctx, t, m.opt()); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

// SendTo is Send for a raw adapter target.
func (m Message) SendTo(ctx context.Context, ad transport.Adapter, to transport.ChatTarget) (transport.MessageRef, error) {
	return m.Send(ctx, transport.NewChannel(ad, to, ""))
}

func (m Message) opt() *transport.SendOptions {
	if m.Opt == nil {
		return &transport.SendOptions{ParseMode: "HTML", DisablePreview: true}
	}
	o := *m.Opt
	return &o
}

// Builder assembles an HTML card. Every text argument is escaped unless the
// method says otherwise.
type Builder struct {
	color Color
	lines []string
	more  []string
}

func New() *Builder { return &Builder{} }

func (b *Builder) Color(c Color) *Builder {
	b.color = c
	return b
}

// Title adds a bold title line. emoji may be empty.
func (b *Builder) Title(emoji, title string) *Builder {
	parts := []H{Raw(b.color.badge()), Esc(strings.TrimSpace(emoji)), B(strings.TrimSpace(title))}
	b.lines = append(b.lines, JoinH(" ", parts...).String())
	return b
}

// Line adds an escaped line; a blank string adds an empty line.
func (b *Builder) Line(s string) *Builder {
	b.lines = append(b.lines, Esc(s).String())
	return b
}

// RawLine adds a line of trusted HTML.
func (b *Builder) RawLine(h H) *Builder {
	b.lines = append(b.lines, h.String())
	return b
}

func (b *Builder) Blank() *Builder { return b.Line("") }

// KV adds "• <b>key:</b> value".
func (b *Builder) KV(key, value string) *Builder {
	key = strings.TrimSpace(key)
	if key == "" {
		return b
	}
	b.lines = append(b.lines, "• "+B(key+":").String()+" "+Esc(strings.TrimSpace(value)).String())
	return b
}

// Field adds a bold field name followed by its value lines, separated from the
// previous content by a blank line.
func (b *Builder) Field(name string, value ...H) *Builder {
	if len(b.lines) > 0 {
		b.lines = append(b.lines, "")
	}
	b.lines = append(b.lines, B(name).String())
	for _, v := range value {
		b.lines = append(b.lines, v.String())
	}
	return b
}

// More queues a follow-up message of trusted HTML.
func (b *Builder) More(h H) *Builder {
	if strings.TrimSpace(h.String()) != "" {
		b.more = append(b.more, h.String())
	}
	return b
}

func (b *Builder) Build() Message {
	return Message{
		Text: strings.Trim(strings.Join(b.lines, "\n"), "\n"),
		Opt:  &transport.SendOptions{ParseMode: "HTML", DisablePreview: true},
		More: append([]string(nil), b.more...),
	}
}
