/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package main is ncproxy, the ProxyRule controller: it renders nginx
// config from ProxyRule resources and reloads nginx on change.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-logr/zapr"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/config"
	"github.com/nanocl-dev/nanocl/internal/controller"
	"github.com/nanocl-dev/nanocl/internal/controller/proxy"
	"github.com/nanocl-dev/nanocl/internal/ncclient"
)

const accessLogInterval = 5 * time.Second

// nginxLogDir is where nginx writes http.log/stream.log, distinct from
// cfg.ConfigDir (the sites/streams-available tree this controller itself
// writes).
const nginxLogDir = "/var/log/nginx"

// nginxReloader shells out to "nginx -s reload", the same os/exec.Command
// pattern the pack's other process-launching code (xfn's spark, crank's
// xpkg init script) uses for a one-shot external command.
type nginxReloader struct{}

func (nginxReloader) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "nginx", "-s", "reload")
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "nginx reload failed: %s", out)
	}
	return nil
}

var cli struct {
	Debug             bool `short:"d" help:"Print verbose logging statements."`
	config.Controller `embed:""`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ncproxy"),
		kong.Description("The nanocl ProxyRule controller."),
		kong.UsageOnError(),
	)

	log := newLogger(cli.Debug)

	if cli.SocketPath == "" {
		cli.SocketPath = config.ProxySocket()
	}

	if err := run(context.Background(), cli.Controller, log); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

// newLogger builds the real logging.Logger this binary binds, favoring a
// development encoder when debug is set, and production JSON otherwise.
func newLogger(debug bool) logging.Logger {
	if debug {
		return logging.NewLogrLogger(zapr.NewLogger(zap.Must(zap.NewDevelopment())))
	}
	return logging.NewLogrLogger(zapr.NewLogger(zap.Must(zap.NewProduction())))
}

func run(ctx context.Context, cfg config.Controller, log logging.Logger) error {
	client := ncclient.New(cfg.DaemonHost)

	ctrl := proxy.New(afero.NewOsFs(), cfg.ConfigDir, client, client, nginxReloader{}, log)
	if err := ctrl.Ensure(); err != nil {
		return errors.Wrap(err, "cannot prepare nginx config directories")
	}

	tailer := proxy.NewAccessLogTailer(afero.NewOsFs(), nginxLogDir, client, accessLogInterval, log)
	go tailer.Run(ctx)

	if err := controller.Handshake(ctx, client, v1.KindProxyRule, "unix://"+cfg.SocketPath); err != nil {
		log.Info("daemon handshake failed", "error", err)
	}

	handler := controller.NewRuleServer(controller.Version, ctrl, log)

	_ = os.Remove(cfg.SocketPath)
	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", cfg.SocketPath)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		log.Info("ncproxy listening", "socket", cfg.SocketPath)
		errCh <- srv.Serve(listener)
	}()

	select {
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
