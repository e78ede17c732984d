package router

import (
	"strings"

	"calbot/internal/transport"
)

// sanitizeMenuCommand maps a name to Telegram's [a-z0-9_]{1,32} command
// alphabet. It returns "" when nothing usable is left.
func sanitizeMenuCommand(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	return out
}

func buildMenu(cmds []Command) []transport.BotCommand {
	out := make([]transport.BotCommand, 0, len(cmds))
	seen := map[string]bool{}
	for _, c := range cmds {
		name := sanitizeMenuCommand(c.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		desc := strings.ReplaceAll(strings.TrimSpace(c.Description), "\n", " ")
		if desc == "" {
			desc = name
		}
		out = append(out, transport.BotCommand{Command: name, Description: desc})
	}
	return out
}
