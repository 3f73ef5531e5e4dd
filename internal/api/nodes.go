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
)

func (h *handlers) listNodes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.Nodes.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *handlers) countNodes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.Nodes.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count int `json:"Count"`
	}{Count: len(rows)})
}

// nodesWS is the inter-node websocket: peers exchange their own node rows
// so each keeps a live view of the cluster without a poll loop. Message
// framing is the same {Name, ...Node fields} JSON as a REST body; this
// handler only owns the upgrade and echo-registration, not cluster
// membership policy.
func (h *handlers) nodesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		var msg struct {
			Name      string `json:"Name"`
			IPAddress string `json:"IpAddress"`
			Endpoint  string `json:"Endpoint"`
			Version   string `json:"Version"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		node, err := h.d.Nodes.Register(r.Context(), msg.Name, msg.IPAddress, msg.Endpoint, msg.Version, nil)
		if err != nil {
			_ = conn.WriteJSON(errMsg{Msg: err.Error()})
			continue
		}
		_ = conn.WriteJSON(node)
	}
}
