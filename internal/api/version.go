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
	"net/http"
	"runtime"
)

func (h *handlers) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Build)
}

// info reports daemon-wide runtime state: the node this process is
// running as, the Go runtime backing it, the host's CPU count, and the
// same build info /version returns.
func (h *handlers) info(w http.ResponseWriter, r *http.Request) {
	out := struct {
		NodeName  string
		GoVersion string
		NumCPU    int
		BuildInfo
	}{
		NodeName:  h.d.NodeName,
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		BuildInfo: h.d.Build,
	}
	writeJSON(w, http.StatusOK, out)
}
