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

package store

import (
	"encoding/json"
	"net/url"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
	xerrors "github.com/crossplane/crossplane-runtime/pkg/errors"
)

// EncodeFilterParam serializes f into the single JSON "filter" query
// parameter the list endpoints accept.
func EncodeFilterParam(f *v1.GenericFilter) (string, error) {
	if f == nil {
		f = v1.NewFilter()
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return "", xerrors.Wrap(err, "cannot marshal filter")
	}
	return string(raw), nil
}

// DecodeFilterParam parses the "filter" query parameter of an incoming
// request back into a GenericFilter.
func DecodeFilterParam(raw string) (*v1.GenericFilter, error) {
	if raw == "" {
		return v1.NewFilter(), nil
	}

	f := &v1.GenericFilter{}
	if err := json.Unmarshal([]byte(raw), f); err != nil {
		return nil, BadRequest("filter", xerrors.Wrap(err, "cannot parse filter query parameter"))
	}
	return f, nil
}

// QueryValues returns the url.Values a client would append to a list
// request's query string for the supplied filter.
func QueryValues(f *v1.GenericFilter) (url.Values, error) {
	raw, err := EncodeFilterParam(f)
	if err != nil {
		return nil, err
	}
	v := url.Values{}
	v.Set("filter", raw)
	return v, nil
}
