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

// Package main is ncdns, the DnsRule controller: it renders dnsmasq.d
// config from DnsRule resources and restarts the ndns cargo to apply it.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
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
	"github.com/nanocl-dev/nanocl/internal/controller/dns"
	"github.com/nanocl-dev/nanocl/internal/ncclient"
)

// upstreamDNSEnv is a comma-separated list of upstream resolvers dnsmasq
// forwards non-local queries to.
const upstreamDNSEnv = "NANOCL_UPSTREAM_DNS"

var cli struct {
	Debug             bool `short:"d" help:"Print verbose logging statements."`
	config.Controller `embed:""`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ncdns"),
		kong.Description("The nanocl DnsRule controller."),
		kong.UsageOnError(),
	)

	log := newLogger(cli.Debug)

	if cli.SocketPath == "" {
		cli.SocketPath = config.DNSSocket()
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

	upstream := []string{"8.8.8.8", "8.8.4.4"}
	if raw := os.Getenv(upstreamDNSEnv); raw != "" {
		upstream = strings.Split(raw, ",")
	}

	ctrl := dns.New(afero.NewOsFs(), cfg.ConfigDir, client, upstream, log)
	if err := ctrl.Ensure(); err != nil {
		return errors.Wrap(err, "cannot prepare dnsmasq config directory")
	}

	if err := controller.Handshake(ctx, client, v1.KindDNSRule, "unix://"+cfg.SocketPath); err != nil {
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
		log.Info("ncdns listening", "socket", cfg.SocketPath)
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
