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

package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// reloadDebounce collapses bursts of rule changes within 750 ms into a
// single backend reload command.
const reloadDebounce = 750 * time.Millisecond

// GatewayResolver resolves the listen address for a namespace-scoped
// network tag ("{namespace}.nsp" → that namespace's bridge gateway).
type GatewayResolver interface {
	NamespaceGateway(ctx context.Context, namespace string) (string, error)
}

// HostGateway returns the address a Public-tagged rule binds to. ncproxy
// wires internal/ncclient here, which reports the system namespace's bridge
// gateway; the host's default gateway is not looked up.
type HostGateway interface {
	HostGateway(ctx context.Context) (string, error)
}

// Reloader restarts or reloads the nginx backend. The real implementation
// shells out to "nginx -s reload"; tests supply a stub.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Controller renders nginx site/stream config files from ProxyRule
// resources and coalesces reloads on a 750 ms debounce timer.
type Controller struct {
	fs       afero.Fs
	confDir  string
	resolver GatewayResolver
	hostGW   HostGateway
	reload   Reloader
	log      logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New builds a Controller. confDir is the nginx config root containing
// sites-available/, sites-enabled/, streams-available/ and
// streams-enabled/.
func New(fs afero.Fs, confDir string, resolver GatewayResolver, hostGW HostGateway, reload Reloader, log logging.Logger) *Controller {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Controller{fs: fs, confDir: confDir, resolver: resolver, hostGW: hostGW, reload: reload, log: log}
}

// Ensure creates the directories nginx expects under confDir.
func (c *Controller) Ensure() error {
	for _, dir := range []string{"sites-available", "sites-enabled", "streams-available", "streams-enabled"} {
		if err := c.fs.MkdirAll(filepath.Join(c.confDir, dir), 0o750); err != nil {
			return errors.Wrapf(err, "cannot create nginx config directory %s", dir)
		}
	}
	return nil
}

// Apply renders and writes config for every Site/Stream rule in data,
// copying each into its "-enabled" directory, then schedules a debounced
// reload. Implements controller.RuleApplier.
func (c *Controller) Apply(ctx context.Context, name string, raw json.RawMessage) error {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrapf(err, "cannot unmarshal proxy rule %s", name)
	}

	for i, rule := range data.Rules {
		confName := fmt.Sprintf("%s.%d", name, i)
		var (
			body string
			err  error
			dir  string
		)
		switch {
		case rule.Site != nil:
			body, err = c.renderSite(ctx, *rule.Site)
			dir = "sites"
		case rule.Stream != nil:
			body, err = c.renderStream(ctx, *rule.Stream)
			dir = "streams"
		default:
			return errors.Errorf("rule %d of %s declares neither Site nor Stream", i, name)
		}
		if err != nil {
			return errors.Wrapf(err, "cannot render rule %d of %s", i, name)
		}
		if err := c.writeAndEnable(dir, confName, body); err != nil {
			return err
		}
	}

	c.scheduleReload()
	return nil
}

// Remove deletes every config file previously written for name and
// schedules a reload. Implements controller.RuleApplier.
func (c *Controller) Remove(ctx context.Context, name string) error {
	for _, dir := range []string{"sites", "streams"} {
		matches, err := afero.Glob(c.fs, filepath.Join(c.confDir, dir+"-available", name+".*.conf"))
		if err != nil {
			return errors.Wrapf(err, "cannot list %s config for %s", dir, name)
		}
		for _, path := range matches {
			_ = c.fs.Remove(path)
			_ = c.fs.Remove(filepath.Join(c.confDir, dir+"-enabled", filepath.Base(path)))
		}
	}
	c.scheduleReload()
	return nil
}

// writeAndEnable writes confName's rendered body under dir-available and
// mirrors it into dir-enabled, copying the rendered bytes rather than
// symlinking: afero.Fs has no portable symlink primitive across all its
// backends (notably the in-memory one tests use), so this gets the same
// nginx-visible result without an unverifiable cross-backend symlink API.
func (c *Controller) writeAndEnable(dir, confName, body string) error {
	availablePath := filepath.Join(c.confDir, dir+"-available", confName+".conf")
	enabledPath := filepath.Join(c.confDir, dir+"-enabled", confName+".conf")
	if err := afero.WriteFile(c.fs, availablePath, []byte(body), 0o640); err != nil {
		return errors.Wrapf(err, "cannot write %s", availablePath)
	}
	if err := afero.WriteFile(c.fs, enabledPath, []byte(body), 0o640); err != nil {
		return errors.Wrapf(err, "cannot write %s", enabledPath)
	}
	return nil
}

func (c *Controller) listenAddress(ctx context.Context, network NetworkTag) (string, error) {
	switch {
	case network == NetworkPrivate:
		return "127.0.0.1", nil
	case network == NetworkPublic:
		return c.hostGW.HostGateway(ctx)
	case strings.HasSuffix(network, ".nsp"):
		return c.resolver.NamespaceGateway(ctx, strings.TrimSuffix(network, ".nsp"))
	default:
		return "", errors.Errorf("unknown network tag %q", network)
	}
}

func (c *Controller) renderSite(ctx context.Context, s Site) (string, error) {
	addr, err := c.listenAddress(ctx, s.Network)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := siteTemplate.Execute(&buf, struct {
		Addr string
		Site Site
	}{Addr: addr, Site: s}); err != nil {
		return "", errors.Wrap(err, "cannot render site template")
	}
	return buf.String(), nil
}

func (c *Controller) renderStream(ctx context.Context, s Stream) (string, error) {
	addr, err := c.listenAddress(ctx, s.Network)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := streamTemplate.Execute(&buf, struct {
		Addr   string
		Stream Stream
	}{Addr: addr, Stream: s}); err != nil {
		return "", errors.Wrap(err, "cannot render stream template")
	}
	return buf.String(), nil
}

// scheduleReload coalesces bursts of Apply/Remove calls within
// reloadDebounce into one reload.
func (c *Controller) scheduleReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(reloadDebounce, func() {
		if err := c.reload.Reload(context.Background()); err != nil {
			c.log.Debug("nginx reload failed", "error", err)
		}
	})
}

var siteTemplate = template.Must(template.New("site").Parse(`server {
  listen {{ .Addr }}:80;
  server_name {{ .Site.Domain }};
{{- range .Site.Locations }}
  location {{ .Path }} {
    proxy_pass http://{{ .Target.Key }}:{{ .Target.Port }};
  }
{{- end }}
}
`))

var streamTemplate = template.Must(template.New("stream").Parse(`server {
  listen {{ .Addr }}:{{ .Stream.Port }}{{ if .Stream.UDP }} udp{{ end }};
  proxy_pass {{ .Stream.Target.Key }}:{{ .Stream.Target.Port }};
}
`))
