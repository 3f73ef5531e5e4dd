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

// Package proxy implements ncproxy, the ProxyRule controller: it renders
// nginx site/stream config from a ProxyRule resource's data and reloads the
// backend on a debounced timer.
package proxy

// NetworkTag is a rule's listen-address selector. Private binds to
// loopback, Public to the address HostGateway reports, and "{namespace}.nsp"
// binds to that namespace's own bridge gateway.
type NetworkTag = string

// Well-known network tags.
const (
	NetworkPrivate = "Private"
	NetworkPublic  = "Public"
)

// Target names the cargo/VM process a rule forwards to.
type Target struct {
	Key  string `json:"Key"`
	Port int    `json:"Port"`
}

// Location is one path-based forwarding rule within a Site.
type Location struct {
	Path   string `json:"Path"`
	Target Target `json:"Target"`
}

// Site is an HTTP (Layer 7) rule.
type Site struct {
	Domain    string     `json:"Domain"`
	Network   NetworkTag `json:"Network"`
	SSLCert   string     `json:"Ssl,omitempty"`
	Locations []Location `json:"Locations"`
}

// Stream is a raw TCP/UDP (Layer 4) rule.
type Stream struct {
	Network NetworkTag `json:"Network"`
	Port    int        `json:"Port"`
	Target  Target     `json:"Target"`
	UDP     bool       `json:"Udp,omitempty"`
}

// Rule is one entry of a ProxyRule resource's Rules list: exactly one of
// Site or Stream is set.
type Rule struct {
	Site   *Site   `json:"Site,omitempty"`
	Stream *Stream `json:"Stream,omitempty"`
}

// Data is the full payload of a ProxyRule resource: rules are tagged
// Site (HTTP) or Stream (TCP/UDP).
type Data struct {
	Rules []Rule `json:"Rules"`
}

// Kind returns "Site" if r has a Site set and "Stream" otherwise.
func (r Rule) Kind() string {
	if r.Site != nil {
		return "Site"
	}
	return "Stream"
}
