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

// Package dns implements ncdns, the DnsRule controller: one dnsmasq.d file
// per network merging every DnsRule resource that targets it, restarting
// the ndns cargo to apply.
package dns

// Entry is one domain-to-address record.
type Entry struct {
	Name      string `json:"Name"`
	IPAddress string `json:"IpAddress"`
}

// Data is the payload of a DnsRule resource.
type Data struct {
	Network string  `json:"Network"`
	Entries []Entry `json:"Entries"`
}
