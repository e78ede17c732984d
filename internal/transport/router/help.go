package router

import (
	"strings"

	"calbot/pkg/chatui"
)

func (m *CommandManager) helpMessage(prefix string, args []string) chatui.Message {
	if len(args) > 0 {
		name := strings.ToLower(strings.TrimPrefix(args[0], prefix))
		m.mu.RLock()
		c := m.cmds[name]
		m.mu.RUnlock()
		if c == nil {
			return chatui.New().Color(chatui.ColorRed).
				Title("❓", "Unknown command").
				RawLine(chatui.Raw("Use " + chatui.Code(prefix+"help").String() + " to see available commands.")).
				Build()
		}
		return commandHelp(prefix, c)
	}

	b := chatui.New().Color(chatui.ColorBlue).Title("📋", "Available Commands")
	var categories []string
	byCat := map[string][]Command{}
	for _, c := range m.Commands() {
		cat := c.Category
		if cat == "" {
			cat = "Other"
		}
		if _, ok := byCat[cat]; !ok {
			categories = append(categories, cat)
		}
		byCat[cat] = append(byCat[cat], c)
	}
	for _, cat := range categories {
		var rows []chatui.H
		for _, c := range byCat[cat] {
			row := chatui.B(prefix + c.Name)
			if d := strings.TrimSpace(c.Description); d != "" {
				row = chatui.JoinH(" - ", row, chatui.Esc(d))
			}
			rows = append(rows, row)
		}
		b.Field(cat, rows...)
	}
	b.Blank().RawLine(chatui.I("Use " + prefix + "<command> to execute"))
	return b.Build()
}

func commandHelp(prefix string, c *Command) chatui.Message {
	b := chatui.New().Color(chatui.ColorBlue).Title("📖", prefix+c.Name)
	if d := strings.TrimSpace(c.Description); d != "" {
		b.Line(d)
	}
	usage := prefix + c.Name
	if u := strings.TrimSpace(c.Usage); u != "" {
		usage += " " + u
	}
	b.Field("Usage", chatui.Code(usage))
	if len(c.Aliases) > 0 {
		aliases := make([]chatui.H, 0, len(c.Aliases))
		for _, a := range c.Aliases {
			aliases = append(aliases, chatui.Code(prefix+a))
		}
		b.Field("Aliases", chatui.JoinH(", ", aliases...))
	}
	return b.Build()
}
