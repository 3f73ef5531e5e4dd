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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	"github.com/nanocl-dev/nanocl/internal/orchestrator"
	"github.com/nanocl-dev/nanocl/internal/store"
)

type fakeSecretRepo struct {
	rows map[string]v1.Secret
}

func newFakeSecretRepo() *fakeSecretRepo {
	return &fakeSecretRepo{rows: map[string]v1.Secret{}}
}

func (f *fakeSecretRepo) CreateFrom(_ context.Context, _ []string, _ []any, row *v1.Secret) error {
	f.rows[row.Key] = *row
	return nil
}

func (f *fakeSecretRepo) ReadByPK(_ context.Context, pk any) (*v1.Secret, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("secret", nil)
	}
	cp := row
	return &cp, nil
}

func (f *fakeSecretRepo) ReadBy(_ context.Context, _ *v1.GenericFilter) ([]v1.Secret, error) {
	var out []v1.Secret
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeSecretRepo) UpdatePK(_ context.Context, pk any, columns []string, values []any) (*v1.Secret, error) {
	row, ok := f.rows[pk.(string)]
	if !ok {
		return nil, store.NotFound("secret", nil)
	}
	for i, c := range columns {
		if c == "data" {
			row.Data = json.RawMessage(values[i].([]byte))
		}
	}
	f.rows[pk.(string)] = row
	cp := row
	return &cp, nil
}

func (f *fakeSecretRepo) DelByPK(_ context.Context, pk any) error {
	delete(f.rows, pk.(string))
	return nil
}

func newTestRouter() http.Handler {
	return NewRouter(Deps{
		Secrets:  orchestrator.NewSecrets(newFakeSecretRepo(), nil, nil),
		Build:    BuildInfo{Version: "0.1.0", Channel: "stable"},
		NodeName: "node-a",
	})
}

func TestVersionEndpoint(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/version: status = %d, want 200", w.Code)
	}
	var body BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Version != "0.1.0" {
		t.Errorf("GET /v1/version: Version = %q, want 0.1.0", body.Version)
	}
}

func TestVersionGateRejectsNewerVersion(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/v2/version", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /v2/version: status = %d, want 404", w.Code)
	}
}

func TestSecretsCreateInspectDelete(t *testing.T) {
	r := newTestRouter()

	createReq := httptest.NewRequest(http.MethodPost, "/v1/secrets/", strings.NewReader(`{"Key":"registry-auth","Data":{"user":"a"}}`))
	createW := httptest.NewRecorder()
	r.ServeHTTP(createW, createReq)
	if createW.Code != http.StatusCreated {
		t.Fatalf("POST /v1/secrets: status = %d, want 201, body %s", createW.Code, createW.Body.String())
	}

	inspectReq := httptest.NewRequest(http.MethodGet, "/v1/secrets/registry-auth/inspect", nil)
	inspectW := httptest.NewRecorder()
	r.ServeHTTP(inspectW, inspectReq)
	if inspectW.Code != http.StatusOK {
		t.Fatalf("GET /v1/secrets/registry-auth/inspect: status = %d, want 200", inspectW.Code)
	}

	deleteReq := httptest.NewRequest(http.MethodDelete, "/v1/secrets/registry-auth", nil)
	deleteW := httptest.NewRecorder()
	r.ServeHTTP(deleteW, deleteReq)
	if deleteW.Code != http.StatusNoContent {
		t.Fatalf("DELETE /v1/secrets/registry-auth: status = %d, want 204", deleteW.Code)
	}

	afterReq := httptest.NewRequest(http.MethodGet, "/v1/secrets/registry-auth/inspect", nil)
	afterW := httptest.NewRecorder()
	r.ServeHTTP(afterW, afterReq)
	if afterW.Code != http.StatusNotFound {
		t.Fatalf("GET /v1/secrets/registry-auth/inspect after delete: status = %d, want 404", afterW.Code)
	}
}

func TestSecretsCreateRejectsEmptyKeyThroughRouter(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/v1/secrets/", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /v1/secrets with empty key: status = %d, want 400", w.Code)
	}
}
