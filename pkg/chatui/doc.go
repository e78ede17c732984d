// Package chatui renders chat messages as small HTML cards (a title line,
// fields and body lines) that are safe for Telegram's HTML parse mode, and
// splits long bodies into several messages.
package chatui
