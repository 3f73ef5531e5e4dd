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

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/nanocl-dev/nanocl/internal/dockerclient"
	"github.com/nanocl-dev/nanocl/internal/eventbus"
	"github.com/nanocl-dev/nanocl/internal/orchestrator"
	"github.com/nanocl-dev/nanocl/internal/vmdisk"
)

// Version is the daemon's compiled API version, compared against a
// request's {version} path segment: a request is accepted if its version
// is less than or equal to the server's compiled version.
const Version = "1"

// acceptedVersions is every API version this daemon still serves: "<= the
// compiled version", expressed as a semver constraint the way
// internal/controller/pkg/resolver's dependency-resolution reconciler
// checks a package tag against a constraint with c.Check(v).
var acceptedVersions = func() *semver.Constraints {
	c, err := semver.NewConstraint("<= " + Version)
	if err != nil {
		panic(err)
	}
	return c
}()

// versionGate rejects a request whose {version} path segment isn't
// satisfied by acceptedVersions, the same "not supported" check
// crates/nanocl_utils/src/ntex/middlewares/versioning.rs performs — except
// that middleware compares version strings lexicographically, which breaks
// past v9; Masterminds/semver gives it a real ordering instead.
func versionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := strings.TrimPrefix(chi.URLParam(r, "version"), "v")
		v, err := semver.NewVersion(requested)
		if err != nil || !acceptedVersions.Check(v) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(errMsg{Msg: chi.URLParam(r, "version") + " is not supported"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BuildInfo is the static version/build metadata returned by GET /version.
type BuildInfo struct {
	Arch      string
	Channel   string
	Version   string
	CommitID  string
}

// Deps is every collaborator the router's handlers need. Handlers hold
// only this struct; they never reach for a package-level global, the same
// shape as every orchestrator in internal/orchestrator.
type Deps struct {
	Namespaces    *orchestrator.Namespaces
	Cargoes       *orchestrator.Cargoes
	VMs           *orchestrator.VMs
	Jobs          *orchestrator.Jobs
	Secrets       *orchestrator.Secrets
	Resources     *orchestrator.Resources
	ResourceKinds *orchestrator.ResourceKinds
	Nodes         *orchestrator.Nodes

	Events    *eventbus.Bus
	Docker    *dockerclient.Client
	Metrics   MetricRepository
	Processes ProcessRepository
	VMImages  *vmdisk.Store

	PromRegistry http.Handler

	Build    BuildInfo
	NodeName string
	Log      logging.Logger
}

// NewRouter builds the full HTTP surface of the daemon.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	h := &handlers{d: d}

	r.Route("/{version}", func(r chi.Router) {
		r.Use(versionGate)

		r.Get("/version", h.version)
		r.Get("/info", h.info)

		r.Route("/namespaces", func(r chi.Router) {
			r.Get("/", h.listNamespaces)
			r.Post("/", h.createNamespace)
			r.Get("/{name}", h.inspectNamespace)
			r.Get("/{name}/inspect", h.inspectNamespace)
			r.Delete("/{name}", h.deleteNamespace)
		})

		r.Route("/cargoes", func(r chi.Router) {
			r.Get("/", h.listCargoes)
			r.Post("/", h.createCargo)
			r.Get("/{name}", h.inspectCargo)
			r.Get("/{name}/inspect", h.inspectCargo)
			r.Put("/{name}", h.updateCargo)
			r.Delete("/{name}", h.deleteCargo)
			r.Post("/{name}/start", h.startCargo)
			r.Post("/{name}/stop", h.stopCargo)
			r.Post("/{name}/exec", h.createExecCommand)
		})

		r.Route("/exec/{id}/cargo", func(r chi.Router) {
			r.Post("/start", h.startExecCommand)
			r.Get("/inspect", h.inspectExecCommand)
		})

		r.Route("/vms", func(r chi.Router) {
			r.Get("/", h.listVMs)
			r.Post("/", h.createVM)
			r.Route("/images", func(r chi.Router) {
				r.Get("/", h.listVMImages)
				r.Get("/{name}/inspect", h.inspectVMImage)
				r.Post("/{name}/import", h.importVMImage)
				r.Post("/{name}/clone", h.cloneVMImage)
				r.Post("/{name}/resize", h.resizeVMImage)
				r.Delete("/{name}", h.deleteVMImage)
			})
			r.Get("/{name}", h.inspectVM)
			r.Get("/{name}/inspect", h.inspectVM)
			r.Put("/{name}", h.updateVM)
			r.Delete("/{name}", h.deleteVM)
			r.Get("/{name}/history", h.vmHistory)
			r.Post("/{name}/start", h.startVM)
			r.Post("/{name}/stop", h.stopVM)
			r.Get("/{name}/attach", h.attachVM)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.listJobs)
			r.Post("/", h.createJob)
			r.Get("/{name}", h.inspectJob)
			r.Get("/{name}/inspect", h.inspectJob)
			r.Delete("/{name}", h.deleteJob)
			r.Post("/{name}/start", h.startJob)
		})

		r.Get("/processes", h.listProcesses)
		r.Route("/processes/{kind}/{name}", func(r chi.Router) {
			r.Post("/start", h.processStart)
			r.Post("/stop", h.processStop)
			r.Post("/restart", h.processRestart)
			r.Post("/kill", h.processKill)
			r.Get("/wait", h.processWait)
			r.Get("/stats", h.processStats)
			r.Get("/logs", h.processLogs)
		})
		r.Route("/processes/{id}", func(r chi.Router) {
			r.Post("/start", h.processInstanceStart)
			r.Get("/logs", h.processInstanceLogs)
		})

		r.Route("/secrets", func(r chi.Router) {
			r.Get("/", h.listSecrets)
			r.Post("/", h.createSecret)
			r.Get("/{key}", h.inspectSecret)
			r.Get("/{key}/inspect", h.inspectSecret)
			r.Put("/{key}", h.updateSecret)
			r.Patch("/{key}", h.updateSecret)
			r.Delete("/{key}", h.deleteSecret)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.listResources)
			r.Post("/", h.createResource)
			r.Get("/{name}", h.inspectResource)
			r.Get("/{name}/inspect", h.inspectResource)
			r.Put("/{name}", h.updateResource)
			r.Delete("/{name}", h.deleteResource)
		})

		r.Route("/resource/kinds", func(r chi.Router) {
			r.Get("/", h.listResourceKinds)
			r.Post("/", h.createResourceKind)
			r.Get("/{domain}/{name}/inspect", h.inspectResourceKind)
			r.Get("/{domain}/{name}/version/{v}/inspect", h.inspectResourceKindVersion)
			r.Delete("/{domain}/{name}", h.deleteResourceKind)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.listMetrics)
			r.Post("/", h.createMetric)
			r.Get("/{key}/inspect", h.inspectMetric)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.listEvents)
			r.Get("/{key}/inspect", h.inspectEvent)
			r.Get("/watch", h.watchEvents)
		})

		r.Get("/nodes", h.listNodes)
		r.Get("/nodes/count", h.countNodes)
		r.Get("/nodes/ws", h.nodesWS)
	})

	if d.PromRegistry != nil {
		r.Handle("/_prom", d.PromRegistry)
	} else {
		r.Handle("/_prom", promhttp.Handler())
	}

	return r
}
