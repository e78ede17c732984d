// Package logx configures calbot's structured logging.
//
// A thin wrapper (logx.Logger) over zerolog keeps console output short and
// readable, file output JSON-structured, and forwards warnings to an optional
// log chat with a rate limit.
package logx
