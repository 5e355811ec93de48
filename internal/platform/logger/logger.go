// Package logger は slog ロガーの構築を提供します。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New は format（json/text）と level（debug/info/warn/error）からロガーを生成します。
// 未知の値はそれぞれ text と info として扱います。
func New(w io.Writer, format, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: ParseLevel(level)}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init はロガーを生成し、slog のデフォルトとして登録します。
func Init(format, level string) *slog.Logger {
	l := New(os.Stdout, format, level)
	slog.SetDefault(l)
	return l
}

// ParseLevel はログレベル文字列を slog.Level に変換します。
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
