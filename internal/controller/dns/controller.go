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

package dns

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// NetworkMember is one other DnsRule resource's data sharing a rule's
// network tag, as returned by DaemonClient.SiblingRules.
type NetworkMember struct {
	Key  string
	Data Data
}

// DaemonClient is the narrow slice of the core REST API ncdns needs:
// resolving listen addresses and restarting itself via the daemon rather
// than a local docker socket (a controller is itself just another
// cargo).
type DaemonClient interface {
	SiblingRules(ctx context.Context, network, excludeKey string) ([]NetworkMember, error)
	NamespaceGateway(ctx context.Context, namespace string) (string, error)
	HostGateway(ctx context.Context) (string, error)
	RestartCargo(ctx context.Context, namespace, name string) error
}

// Controller renders dnsmasq.d config and restarts the ndns cargo to
// apply it. Implements controller.RuleApplier. DELETE carries no body,
// so Controller remembers each rule's network from its last Apply, the
// same way the daemon-side resource row would still exist if Remove
// were instead implemented by re-reading the resource before deleting it.
type Controller struct {
	fs        afero.Fs
	confDir   string
	daemon    DaemonClient
	dnsServer []string
	log       logging.Logger

	mu       sync.Mutex
	networks map[string]string // rule name -> network
}

// New builds a Controller. confDir is dnsmasq's config root; config files
// are written under confDir/dnsmasq.d.
func New(fs afero.Fs, confDir string, daemon DaemonClient, upstreamDNS []string, log logging.Logger) *Controller {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Controller{fs: fs, confDir: confDir, daemon: daemon, dnsServer: upstreamDNS, log: log, networks: map[string]string{}}
}

// Ensure writes the minimal dnsmasq.conf that includes every file under
// dnsmasq.d, and the upstream resolver lines.
func (c *Controller) Ensure() error {
	dir := filepath.Join(c.confDir, "dnsmasq.d")
	if err := c.fs.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create %s", dir)
	}
	var b strings.Builder
	for _, dns := range c.dnsServer {
		fmt.Fprintf(&b, "server=%s\n", dns)
	}
	b.WriteString("bind-interfaces\nno-resolv\nno-poll\nno-hosts\nproxy-dnssec\nexcept-interface=lo\n")
	fmt.Fprintf(&b, "conf-dir=%s,*.conf\n", dir)
	return afero.WriteFile(c.fs, filepath.Join(c.confDir, "dnsmasq.conf"), []byte(b.String()), 0o640)
}

// Apply merges name's entries with every sibling DnsRule resource on the
// same network, rewrites that network's dnsmasq.d file with the union, and
// restarts ndns. Implements controller.RuleApplier.
func (c *Controller) Apply(ctx context.Context, name string, raw json.RawMessage) error {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrapf(err, "cannot unmarshal dns rule %s", name)
	}

	siblings, err := c.daemon.SiblingRules(ctx, data.Network, name)
	if err != nil {
		return errors.Wrapf(err, "cannot list sibling dns rules for network %s", data.Network)
	}
	entries := append([]Entry{}, data.Entries...)
	for _, sib := range siblings {
		entries = append(entries, sib.Data.Entries...)
	}

	if err := c.writeNetworkFile(ctx, data.Network, entries); err != nil {
		return err
	}

	c.mu.Lock()
	c.networks[name] = data.Network
	c.mu.Unlock()

	return c.daemon.RestartCargo(ctx, "system", "ndns")
}

// Remove recomputes name's network file without its own entries (the
// remaining siblings' union), removing the file entirely if none remain,
// then restarts ndns.
func (c *Controller) Remove(ctx context.Context, name string) error {
	c.mu.Lock()
	network, ok := c.networks[name]
	delete(c.networks, name)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	siblings, err := c.daemon.SiblingRules(ctx, network, name)
	if err != nil {
		return errors.Wrapf(err, "cannot list sibling dns rules for network %s", network)
	}
	var entries []Entry
	for _, sib := range siblings {
		entries = append(entries, sib.Data.Entries...)
	}
	if len(entries) == 0 {
		_ = c.fs.Remove(filepath.Join(c.confDir, "dnsmasq.d", network+".conf"))
		return c.daemon.RestartCargo(ctx, "system", "ndns")
	}
	if err := c.writeNetworkFile(ctx, network, entries); err != nil {
		return err
	}
	return c.daemon.RestartCargo(ctx, "system", "ndns")
}

func (c *Controller) writeNetworkFile(ctx context.Context, network string, entries []Entry) error {
	listenAddr, err := c.listenAddress(ctx, network)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "bind-dynamic\nlisten-address=%s\n", listenAddr)
	for _, e := range entries {
		ip := e.IPAddress
		if strings.HasSuffix(ip, ".nsp") {
			ip, err = c.daemon.NamespaceGateway(ctx, strings.TrimSuffix(ip, ".nsp"))
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(&b, "address=/%s/%s\n", e.Name, ip)
	}
	path := filepath.Join(c.confDir, "dnsmasq.d", network+".conf")
	if err := afero.WriteFile(c.fs, path, []byte(b.String()), 0o640); err != nil {
		return errors.Wrapf(err, "cannot write %s", path)
	}
	return nil
}

func (c *Controller) listenAddress(ctx context.Context, network string) (string, error) {
	switch {
	case network == "Private":
		return "127.0.0.1", nil
	case network == "Public":
		return c.daemon.HostGateway(ctx)
	case strings.HasSuffix(network, ".nsp"):
		return c.daemon.NamespaceGateway(ctx, strings.TrimSuffix(network, ".nsp"))
	default:
		return "", errors.Errorf("unknown network tag %q", network)
	}
}
