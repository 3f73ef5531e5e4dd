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
	"strings"
	"testing"

	"github.com/spf13/afero"
)

type fakeDaemonClient struct {
	siblings    map[string][]NetworkMember
	gateways    map[string]string
	hostGateway string
	restarts    []string
}

func newFakeDaemonClient() *fakeDaemonClient {
	return &fakeDaemonClient{
		siblings: map[string][]NetworkMember{},
		gateways: map[string]string{},
	}
}

func (f *fakeDaemonClient) SiblingRules(_ context.Context, network, excludeKey string) ([]NetworkMember, error) {
	var out []NetworkMember
	for _, m := range f.siblings[network] {
		if m.Key == excludeKey {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeDaemonClient) NamespaceGateway(_ context.Context, namespace string) (string, error) {
	return f.gateways[namespace], nil
}

func (f *fakeDaemonClient) HostGateway(_ context.Context) (string, error) {
	return f.hostGateway, nil
}

func (f *fakeDaemonClient) RestartCargo(_ context.Context, namespace, name string) error {
	f.restarts = append(f.restarts, namespace+"/"+name)
	return nil
}

func TestControllerEnsureWritesConfIncludingUpstreams(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/etc/dnsmasq", newFakeDaemonClient(), []string{"1.1.1.1", "8.8.8.8"}, nil)

	if err := c.Ensure(); err != nil {
		t.Fatalf("Ensure(...): unexpected error: %v", err)
	}
	body, err := afero.ReadFile(fs, "/etc/dnsmasq/dnsmasq.conf")
	if err != nil {
		t.Fatalf("dnsmasq.conf not written: %v", err)
	}
	for _, want := range []string{"server=1.1.1.1", "server=8.8.8.8", "conf-dir=/etc/dnsmasq/dnsmasq.d,*.conf"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Ensure(...): dnsmasq.conf = %q, want it to contain %q", body, want)
		}
	}
}

func TestControllerApplyMergesSiblingEntriesOnSameNetwork(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	daemon.siblings["global.nsp"] = []NetworkMember{
		{Key: "other-rule", Data: Data{Network: "global.nsp", Entries: []Entry{{Name: "b.local", IPAddress: "10.0.0.5"}}}},
	}
	daemon.gateways["global"] = "10.2.0.1"
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	data := Data{Network: "global.nsp", Entries: []Entry{{Name: "a.local", IPAddress: "10.0.0.4"}}}
	raw, _ := json.Marshal(data)
	if err := c.Apply(context.Background(), "rule-a", raw); err != nil {
		t.Fatalf("Apply(...): unexpected error: %v", err)
	}

	body, err := afero.ReadFile(fs, "/etc/dnsmasq/dnsmasq.d/global.nsp.conf")
	if err != nil {
		t.Fatalf("network file not written: %v", err)
	}
	for _, want := range []string{"listen-address=10.2.0.1", "address=/a.local/10.0.0.4", "address=/b.local/10.0.0.5"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Apply(...): rendered file = %q, want it to contain %q", body, want)
		}
	}
	if len(daemon.restarts) != 1 || daemon.restarts[0] != "system/ndns" {
		t.Errorf("Apply(...): restarts = %v, want exactly one system/ndns restart", daemon.restarts)
	}
}

func TestControllerApplyResolvesNspSuffixedEntryAddress(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	daemon.gateways["staging"] = "10.5.0.1"
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	data := Data{Network: "Private", Entries: []Entry{{Name: "web.staging", IPAddress: "staging.nsp"}}}
	raw, _ := json.Marshal(data)
	if err := c.Apply(context.Background(), "rule-b", raw); err != nil {
		t.Fatalf("Apply(...): unexpected error: %v", err)
	}

	body, err := afero.ReadFile(fs, "/etc/dnsmasq/dnsmasq.d/Private.conf")
	if err != nil {
		t.Fatalf("network file not written: %v", err)
	}
	if !strings.Contains(string(body), "listen-address=127.0.0.1") {
		t.Errorf("Apply(...): rendered file = %q, want Private network to listen on 127.0.0.1", body)
	}
	if !strings.Contains(string(body), "address=/web.staging/10.5.0.1") {
		t.Errorf("Apply(...): rendered file = %q, want the .nsp suffix resolved to staging's gateway", body)
	}
}

func TestControllerApplyPublicResolvesHostGateway(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	daemon.hostGateway = "172.17.0.1"
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	data := Data{Network: "Public", Entries: []Entry{{Name: "api.example.com", IPAddress: "172.17.0.5"}}}
	raw, _ := json.Marshal(data)
	if err := c.Apply(context.Background(), "rule-c", raw); err != nil {
		t.Fatalf("Apply(...): unexpected error: %v", err)
	}

	body, err := afero.ReadFile(fs, "/etc/dnsmasq/dnsmasq.d/Public.conf")
	if err != nil {
		t.Fatalf("network file not written: %v", err)
	}
	if !strings.Contains(string(body), "listen-address=172.17.0.1") {
		t.Errorf("Apply(...): rendered file = %q, want Public network to listen on the host gateway", body)
	}
}

func TestControllerApplyRejectsUnknownNetworkTag(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "/etc/dnsmasq", newFakeDaemonClient(), nil, nil)

	data := Data{Network: "bogus", Entries: []Entry{{Name: "x", IPAddress: "1.2.3.4"}}}
	raw, _ := json.Marshal(data)
	if err := c.Apply(context.Background(), "rule-d", raw); err == nil {
		t.Fatal("Apply(...): want error for an unrecognized network tag")
	}
}

func TestControllerRemoveRewritesRemainingSiblingsUnion(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	first := Data{Network: "Private", Entries: []Entry{{Name: "a.local", IPAddress: "10.0.0.4"}}}
	raw, _ := json.Marshal(first)
	if err := c.Apply(context.Background(), "rule-a", raw); err != nil {
		t.Fatalf("Apply(rule-a): unexpected error: %v", err)
	}
	daemon.siblings["Private"] = []NetworkMember{
		{Key: "rule-a", Data: first},
	}
	second := Data{Network: "Private", Entries: []Entry{{Name: "b.local", IPAddress: "10.0.0.5"}}}
	raw, _ = json.Marshal(second)
	if err := c.Apply(context.Background(), "rule-b", raw); err != nil {
		t.Fatalf("Apply(rule-b): unexpected error: %v", err)
	}
	daemon.siblings["Private"] = append(daemon.siblings["Private"], NetworkMember{Key: "rule-b", Data: second})

	if err := c.Remove(context.Background(), "rule-b"); err != nil {
		t.Fatalf("Remove(rule-b): unexpected error: %v", err)
	}

	body, err := afero.ReadFile(fs, "/etc/dnsmasq/dnsmasq.d/Private.conf")
	if err != nil {
		t.Fatalf("network file not written after Remove: %v", err)
	}
	if strings.Contains(string(body), "b.local") {
		t.Errorf("Remove(...): rendered file = %q, still contains the removed rule's entry", body)
	}
	if !strings.Contains(string(body), "a.local") {
		t.Errorf("Remove(...): rendered file = %q, want the remaining sibling's entry preserved", body)
	}
}

func TestControllerRemoveDeletesFileWhenNoSiblingsRemain(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	data := Data{Network: "Private", Entries: []Entry{{Name: "a.local", IPAddress: "10.0.0.4"}}}
	raw, _ := json.Marshal(data)
	if err := c.Apply(context.Background(), "rule-a", raw); err != nil {
		t.Fatalf("Apply(...): unexpected error: %v", err)
	}

	if err := c.Remove(context.Background(), "rule-a"); err != nil {
		t.Fatalf("Remove(...): unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/etc/dnsmasq/dnsmasq.d/Private.conf"); ok {
		t.Error("Remove(...): network file still present with no siblings left")
	}
	if len(daemon.restarts) != 2 {
		t.Errorf("Remove(...): restarts = %v, want 2 total (one from Apply, one from Remove)", daemon.restarts)
	}
}

func TestControllerRemoveUnknownRuleIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	daemon := newFakeDaemonClient()
	c := New(fs, "/etc/dnsmasq", daemon, nil, nil)

	if err := c.Remove(context.Background(), "never-applied"); err != nil {
		t.Fatalf("Remove(...): unexpected error for a never-applied rule: %v", err)
	}
	if len(daemon.restarts) != 0 {
		t.Errorf("Remove(...): restarts = %v, want none for a no-op remove", daemon.restarts)
	}
}
