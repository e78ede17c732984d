package router

import "strings"

// tokenizeCommandLine splits a command line on whitespace, keeping quoted
// strings together and honouring backslash escapes:
//
//	/cmd a "b c" --k=v
func tokenizeCommandLine(s string) []string {
	var (
		out   []string
		buf   strings.Builder
		quote byte
		esc   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case esc:
			buf.WriteByte(ch)
			esc = false
		case ch == '\\':
			esc = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				buf.WriteByte(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			buf.WriteByte(ch)
		}
	}
	flush()
	return out
}

// parseFlags separates positionals from --k=v, --k v and --flag forms.
// Negative numbers such as "-1001234" stay positional: chat ids are negative.
func parseFlags(args []string) (pos []string, flags map[string]string, bools map[string]bool) {
	flags = map[string]string{}
	bools = map[string]bool{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "--") || len(a) == 2 {
			pos = append(pos, a)
			continue
		}
		key := a[2:]
		if k, v, ok := strings.Cut(key, "="); ok {
			flags[k] = v
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[key] = args[i+1]
			i++
			continue
		}
		bools[key] = true
	}
	return pos, flags, bools
}

// splitCommandWord extracts the command name from "/name@bot" given prefix.
func splitCommandWord(word, prefix string) (name, mention string, ok bool) {
	if prefix == "" || !strings.HasPrefix(word, prefix) {
		return "", "", false
	}
	name = strings.TrimPrefix(word, prefix)
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name, mention = name[:i], name[i+1:]
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), mention, true
}
