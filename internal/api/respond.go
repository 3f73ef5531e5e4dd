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

// Package api implements the daemon's REST/WS surface: a go-chi router
// with cors, JSON bodies, {"msg": string} errors, and a streaming
// response framing for log/stats/wait/events endpoints.
package api

import (
	"encoding/json"
	"net/http"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/store"
)

// rawStreamContentType is the Content-Type of every streaming endpoint:
// a sequence of UTF-8 JSON objects each terminated by a newline.
const rawStreamContentType = "application/vdn.nanocl.raw-stream"

type errMsg struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeErr maps a store.Kind to its HTTP status and writes the {"msg":...}
// body every error response uses.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch store.KindOf(err) {
	case store.KindNotFound:
		status = http.StatusNotFound
	case store.KindAlreadyExists, store.KindConflict:
		status = http.StatusConflict
	case store.KindBadRequest:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errMsg{Msg: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseFilter decodes the "filter" query parameter into a GenericFilter, or
// returns an empty one if absent.
func parseFilter(r *http.Request) (*v1.GenericFilter, error) {
	raw := r.URL.Query().Get("filter")
	f := v1.NewFilter()
	if raw == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(raw), f); err != nil {
		return nil, err
	}
	return f, nil
}

// streamWriter frames successive JSON values as newline-delimited objects
// under rawStreamContentType, flushing after each one so clients see them
// as they arrive rather than buffered until the handler returns.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newStreamWriter(w http.ResponseWriter) streamWriter {
	w.Header().Set("Content-Type", rawStreamContentType)
	w.WriteHeader(http.StatusOK)
	f, _ := w.(http.Flusher)
	return streamWriter{w: w, flusher: f}
}

func (s streamWriter) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
