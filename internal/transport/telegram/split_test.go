package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/internal/transport"
)

func TestSplitTextShort(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitText("hello", 10, ""))
	assert.Equal(t, []string{""}, splitText("", 10, ""))
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	s := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	assert.Equal(t, []string{"aaaaaa", "bbbbbb"}, splitText(s, 10, ""))
}

func TestSplitTextHardCut(t *testing.T) {
	got := splitText(strings.Repeat("x", 25), 10, "")
	require.Len(t, got, 3)
	assert.Equal(t, 10, len(got[0]))
	assert.Equal(t, 5, len(got[2]))
}

func TestSplitTextKeepsHTMLTagsWhole(t *testing.T) {
	s := "abcdef<b>bold</b>"
	got := splitText(s, 8, "HTML")
	require.NotEmpty(t, got)
	assert.Equal(t, "abcdef", got[0])
	assert.Equal(t, s, strings.Join(got, ""))
}

func TestSplitTextCountsRunes(t *testing.T) {
	s := strings.Repeat("가", 12)
	got := splitText(s, 10, "")
	require.Len(t, got, 2)
	assert.Equal(t, 10, len([]rune(got[0])))
}

func TestMenuCommandsLimits(t *testing.T) {
	cmds := []transport.BotCommand{{Command: ""}, {Command: "today"}, {Command: "ping", Description: strings.Repeat("d", 300)}}
	for i := 0; i < 120; i++ {
		cmds = append(cmds, transport.BotCommand{Command: "c", Description: "x"})
	}
	got := menuCommands(cmds)
	require.Len(t, got, 100)
	assert.Equal(t, "today", got[0].Text)
	assert.Equal(t, "today", got[0].Description)
	assert.Len(t, got[1].Description, 256)
	assert.Equal(t, menuHash(got), menuHash(menuCommands(cmds)))
}
