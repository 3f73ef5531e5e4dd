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

// Package main is nanocld, the daemon: it owns the SQL store, the docker
// connection and the REST API every other process (nanocl CLI, ncproxy,
// ncdns) talks to.
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
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/api"
	"github.com/nanocl-dev/nanocl/internal/circuit"
	"github.com/nanocl-dev/nanocl/internal/config"
	"github.com/nanocl-dev/nanocl/internal/controller"
	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/eventbus"
	"github.com/nanocl-dev/nanocl/internal/metrics"
	"github.com/nanocl-dev/nanocl/internal/objstatus"
	"github.com/nanocl-dev/nanocl/internal/orchestrator"
	"github.com/nanocl-dev/nanocl/internal/reconciler"
	"github.com/nanocl-dev/nanocl/internal/store"
	"github.com/nanocl-dev/nanocl/internal/task"
	"github.com/nanocl-dev/nanocl/internal/vmdisk"
	"github.com/spf13/afero"
)

// buildVersion, buildCommit are overridden at link time the way crossplane's
// own cmd packages bake a version string in, via -ldflags "-X ...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

var cli struct {
	Debug         bool `short:"d" help:"Print verbose logging statements."`
	config.Daemon `embed:""`
}

// kindRegistrarAdapter lets the daemon satisfy controller.KindRegistrar
// in-process, wrapping ResourceKinds.Create's create-or-update semantics
// behind the boot-time handshake shape every controller (in-process or
// remote) calls the same way.
type kindRegistrarAdapter struct {
	kinds *orchestrator.ResourceKinds
}

func (a kindRegistrarAdapter) RegisterKind(ctx context.Context, name, socketURL string) error {
	_, err := a.kinds.Create(ctx, name, v1.ResourceKindSpecData{URL: socketURL})
	return err
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("nanocld"),
		kong.Description("The nanocl daemon."),
		kong.UsageOnError(),
	)

	log := newLogger(cli.Debug)

	if err := run(context.Background(), cli.Daemon, log); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

// newLogger builds the real logging.Logger every binary's main binds,
// favoring a development encoder (stack traces, human-readable output)
// when debug is set, and production JSON otherwise.
func newLogger(debug bool) logging.Logger {
	if debug {
		return logging.NewLogrLogger(zapr.NewLogger(zap.Must(zap.NewDevelopment())))
	}
	return logging.NewLogrLogger(zapr.NewLogger(zap.Must(zap.NewProduction())))
}

func run(ctx context.Context, cfg config.Daemon, log logging.Logger) error {
	if err := cfg.Complete(); err != nil {
		return errors.Wrap(err, "cannot complete configuration")
	}

	// dockerclient.New dials via client.FromEnv, which reads DOCKER_HOST
	// directly; set it from the resolved config so a flag/env override on
	// this process's own flag takes effect even if DOCKER_HOST itself was
	// never exported.
	if err := os.Setenv("DOCKER_HOST", cfg.DockerHost); err != nil {
		return errors.Wrap(err, "cannot set DOCKER_HOST")
	}
	docker, err := dockerclient.New(log)
	if err != nil {
		return errors.Wrap(err, "cannot connect to container runtime")
	}

	db, err := store.Open(ctx, store.ConnectOptions{DSN: cfg.DSN()}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := metrics.NewRegistry()
	breakerMetrics := circuit.NewPrometheusMetrics()
	reg.MustRegister(breakerMetrics)
	counters := metrics.NewCounters(reg)

	repos := newRepositories(db)

	bus := eventbus.New(repos.events, log)
	go bus.Run(ctx)

	status := objstatus.New(repos.objStatus, bus)
	tasks := task.New(log)
	recon := reconciler.New(docker, repos.processes, status, bus, log)
	go recon.Ingest(ctx)

	disks := vmdisk.New(afero.NewOsFs(), cfg.VMImagesDir(), repos.vmImages)
	cronSched := cron.New()
	cronSched.Start()
	defer cronSched.Stop()

	breaker := circuit.NewTokenBucketBreaker(breakerMetrics, "rule-controller")
	ruleClient := controller.NewBreakerRuleClient(controller.NewHTTPRuleClient(), breaker)

	nodes := orchestrator.NewNodes(repos.nodes, log)
	namespaces := orchestrator.NewNamespaces(repos.namespaces, repos.cargoes, docker, bus, log)
	cargoes := orchestrator.NewCargoes(repos.cargoes, repos.specs, repos.processes, status, tasks, recon, bus, cfg.Hostname, log)
	vms := orchestrator.NewVMs(repos.vms, repos.specs, repos.processes, status, tasks, recon, disks, bus, cfg.Hostname, log)
	jobs := orchestrator.NewJobs(repos.jobs, repos.specs, repos.processes, status, tasks, recon, cronSched, bus, cfg.Hostname, log)
	secrets := orchestrator.NewSecrets(repos.secrets, bus, log)
	resourceKinds := orchestrator.NewResourceKinds(repos.resourceKinds, repos.specs, bus, log)
	resources := orchestrator.NewResources(repos.resources, repos.specs, resourceKinds, ruleClient, bus, log)

	if _, err := nodes.Register(ctx, cfg.Hostname, "", cfg.AdvertiseAddr, buildVersion, v1.Metadata{}); err != nil {
		return errors.Wrap(err, "cannot register node")
	}

	registrar := kindRegistrarAdapter{kinds: resourceKinds}
	if err := controller.Handshake(ctx, registrar, v1.KindProxyRule, "unix://"+config.ProxySocket()); err != nil {
		log.Info("proxy controller not yet reachable", "error", err)
	}
	if err := controller.Handshake(ctx, registrar, v1.KindDNSRule, "unix://"+config.DNSSocket()); err != nil {
		log.Info("dns controller not yet reachable", "error", err)
	}

	ingester := metrics.NewIngester(config.MetricsSocket(), cfg.Hostname, repos.metrics, counters, log)
	go ingester.Run(ctx)

	router := api.NewRouter(api.Deps{
		Namespaces:    namespaces,
		Cargoes:       cargoes,
		VMs:           vms,
		Jobs:          jobs,
		Secrets:       secrets,
		Resources:     resources,
		ResourceKinds: resourceKinds,
		Nodes:         nodes,
		Events:        bus,
		Docker:        docker,
		Metrics:       repos.metrics,
		Processes:     repos.processes,
		VMImages:      disks,
		PromRegistry:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Build: api.BuildInfo{
			Arch:     "amd64",
			Channel:  "stable",
			Version:  buildVersion,
			CommitID: buildCommit,
		},
		NodeName: cfg.Hostname,
		Log:      log,
	})

	srv, listener, err := newServer(cfg.Host, cfg.MaxConns, router)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("daemon listening", "address", cfg.Host)
		errCh <- srv.Serve(listener)
	}()

	select {
	case <-runCtx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "daemon server stopped")
		}
		return nil
	}
}

// newServer builds an *http.Server and a listener for host, honoring the
// same "unix://" prefix convention internal/controller/client.go uses for
// dialing, but for listening. maxConns caps concurrent accepted connections
// on a TCP listener via netutil.LimitListener, protecting the daemon from a
// connection flood on a host-exposed port; it has no effect on a Unix
// socket listener, which is already reachable only by local processes. A
// maxConns of 0 disables the cap.
func newServer(host string, maxConns int, handler http.Handler) (*http.Server, net.Listener, error) {
	const prefix = "unix://"
	if strings.HasPrefix(host, prefix) {
		sockPath := strings.TrimPrefix(host, prefix)
		_ = os.Remove(sockPath)
		listener, err := net.Listen("unix", sockPath)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "cannot listen on %s", sockPath)
		}
		return &http.Server{Handler: handler}, listener, nil
	}
	listener, err := net.Listen("tcp", host)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot listen on %s", host)
	}
	if maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
	}
	return &http.Server{Handler: handler}, listener, nil
}

// repositories bundles one store.Repository[T] per entity, each built
// against the column registry internal/store/registries.go already
// declares for it.
type repositories struct {
	namespaces    *store.Repository[v1.Namespace]
	nodes         *store.Repository[v1.Node]
	specs         *store.Repository[v1.Spec]
	objStatus     *store.Repository[v1.ObjPsStatus]
	cargoes       *store.Repository[v1.Cargo]
	vms           *store.Repository[v1.VM]
	vmImages      *store.Repository[v1.VMImage]
	jobs          *store.Repository[v1.Job]
	processes     *store.Repository[v1.Process]
	resourceKinds *store.Repository[v1.ResourceKind]
	resources     *store.Repository[v1.Resource]
	secrets       *store.Repository[v1.Secret]
	metrics       *store.Repository[v1.Metric]
	events        *store.Repository[v1.Event]
}

func newRepositories(db *sqlx.DB) *repositories {
	return &repositories{
		namespaces:    store.NewRepository[v1.Namespace](db, "namespace", "namespaces", "name", store.NamespaceColumns),
		nodes:         store.NewRepository[v1.Node](db, "node", "nodes", "name", store.NodeColumns),
		specs:         store.NewRepository[v1.Spec](db, "spec", "specs", "key", store.SpecColumns),
		objStatus:     store.NewRepository[v1.ObjPsStatus](db, "objpsstatus", "object_statuses", "key", store.ObjPsStatusColumns),
		cargoes:       store.NewRepository[v1.Cargo](db, "cargo", "cargoes", "key", store.CargoColumns),
		vms:           store.NewRepository[v1.VM](db, "vm", "vms", "key", store.VMColumns),
		vmImages:      store.NewRepository[v1.VMImage](db, "vmimage", "vm_images", "name", store.VMImageColumns),
		jobs:          store.NewRepository[v1.Job](db, "job", "jobs", "key", store.JobColumns),
		processes:     store.NewRepository[v1.Process](db, "process", "processes", "key", store.ProcessColumns),
		resourceKinds: store.NewRepository[v1.ResourceKind](db, "resourcekind", "resource_kinds", "name", store.ResourceKindColumns),
		resources:     store.NewRepository[v1.Resource](db, "resource", "resources", "key", store.ResourceColumns),
		secrets:       store.NewRepository[v1.Secret](db, "secret", "secrets", "key", store.SecretColumns),
		metrics:       store.NewRepository[v1.Metric](db, "metric", "metrics", "key", store.MetricColumns),
		events:        store.NewRepository[v1.Event](db, "event", "events", "key", eventbus.EventColumns),
	}
}
