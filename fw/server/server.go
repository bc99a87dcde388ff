package server

import (
	"context"
	"os/signal"
	"sfidfw/fw/api"
	"sfidfw/fw/app"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/logx"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

var bootLog = logx.New(logx.WithPrefix("boot"))

const shutdownTimeout = 10 * time.Second

// Run 启动服务，收到 SIGINT/SIGTERM 后优雅关闭
func Run(cfg *config.Config, cfgPath string) error {
	// 1) 日志
	logx.MustInit(cfg.Logging.Options())
	defer logx.Close()

	// 2) 应用
	a, err := app.NewWithConfig(cfg, cfgPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(); err != nil {
			bootLog.Errorf("stop: %v", err)
		}
	}()
	if err := a.Start(); err != nil {
		return err
	}

	// 3) Router + 服务器
	srv, useTLS := buildHTTPServer(cfg.Server, api.New(a).Router())
	for _, u := range listenURLs(srv.Addr, useTLS) {
		bootLog.Infof("listening: %s", u)
	}

	// 4) 运行直到信号或任一组件失败
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return serve(srv, useTLS) })
	g.Go(func() error {
		<-gctx.Done()
		bootLog.Infof("stopping...")
		return shutdown(srv, shutdownTimeout)
	})
	err = g.Wait()
	bootLog.Infof("bye")
	return err
}
