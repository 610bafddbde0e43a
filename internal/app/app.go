package app

import (
	"context"
	"fmt"

	cccfg "concord/internal/config"
	"concord/internal/logger"
	apphttp "concord/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
type App struct {
	cfg     *cccfg.Config
	httpSrv *apphttp.Server
	closers []func() error
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *cccfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务，阻塞直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.httpSrv == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()
	return a.httpSrv.Start(ctx)
}

// Close 释放存储等底层资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			logger.Warnf("[App] close resource failed: %v", err)
		}
	}
	a.closers = nil
}
