package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

// 进程级 slog 封装。输出目标可在启动时重定向（stdout+文件），
// 级别随配置热切换，调用方只用 Debugf/Infof/Warnf/Errorf。

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	levelVar.Set(slog.LevelInfo)
	current.Store(newLogger(os.Stdout))
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

func SetOutput(w io.Writer) {
	current.Store(newLogger(w))
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func Debugf(format string, v ...any) { current.Load().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { current.Load().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { current.Load().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { current.Load().Error(fmt.Sprintf(format, v...)) }
