package chatui

import (
	"strings"
	"unicode/utf8"
)

// MaxBody is the body size above which cards are split.
const MaxBody = 4000

// Truncate cuts s to n runes and appends suffix when anything was removed.
func Truncate(s string, n int, suffix string) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + suffix
		}
		count++
	}
	return s
}

// truncateHTML cuts rendered markup to at most n runes. The cut never lands
// inside an entity or a tag, and tags left open by the cut are closed after
// suffix.
func truncateHTML(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	budget := n - utf8.RuneCountInString(suffix)
	for budget > 0 {
		cut := Truncate(s, budget, "")
		if amp := strings.LastIndexByte(cut, '&'); amp > strings.LastIndexByte(cut, ';') {
			cut = cut[:amp]
		}
		if lt := strings.LastIndexByte(cut, '<'); lt > strings.LastIndexByte(cut, '>') {
			cut = cut[:lt]
		}
		out := cut + suffix + closeTags(cut)
		if over := utf8.RuneCountInString(out) - n; over > 0 {
			budget -= over
			continue
		}
		return out
	}
	return Truncate(suffix, n, "")
}

// closeTags returns the closing tags for every element still open in s.
func closeTags(s string) string {
	var open []string
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			break
		}
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			break
		}
		tag := s[lt+1 : lt+gt]
		s = s[lt+gt+1:]
		if strings.HasPrefix(tag, "/") {
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			continue
		}
		if name, _, _ := strings.Cut(tag, " "); name != "" && !strings.HasSuffix(tag, "/") {
			open = append(open, name)
		}
	}
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

// SplitLines splits rendered text into chunks of at most max runes, cutting
// only at line breaks. A single line longer than max is cut to fit with a
// trailing "..." without splitting an entity or leaving a tag open.
// Chunks are trimmed and empty chunks are dropped.
func SplitLines(text string, max int) []string {
	if max <= 3 {
		max = MaxBody
	}
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line) + 1
		if curLen+n <= max {
			cur.WriteString(line)
			cur.WriteByte('\n')
			curLen += n
			continue
		}
		if curLen > 0 {
			flush()
			if n <= max {
				cur.WriteString(line)
				cur.WriteByte('\n')
				curLen = n
				continue
			}
		}
		chunks = append(chunks, truncateHTML(line, max, "..."))
	}
	flush()
	return chunks
}
