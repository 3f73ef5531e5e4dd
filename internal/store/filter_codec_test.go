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
	"testing"

	"github.com/google/go-cmp/cmp"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

func TestFilterRoundTrip(t *testing.T) {
	cases := map[string]struct {
		reason string
		filter *v1.GenericFilter
	}{
		"Empty": {
			reason: "an empty filter round-trips to an empty filter",
			filter: v1.NewFilter(),
		},
		"WhereOrderLimitOffset": {
			reason: "every representable field survives encode then decode",
			filter: v1.NewFilter().
				Eq("name", "web").
				Like("image", "%nginx%").
				WithOrder("created_at", v1.Desc).
				WithLimit(20).
				WithOffset(40),
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := EncodeFilterParam(tc.filter)
			if err != nil {
				t.Fatalf("\n%s\nEncodeFilterParam(...): unexpected error: %v", tc.reason, err)
			}

			got, err := DecodeFilterParam(raw)
			if err != nil {
				t.Fatalf("\n%s\nDecodeFilterParam(...): unexpected error: %v", tc.reason, err)
			}

			if diff := cmp.Diff(tc.filter, got); diff != "" {
				t.Errorf("\n%s\nRoundTrip(...): -want, +got:\n%s", tc.reason, diff)
			}
		})
	}
}

func TestDecodeFilterParamEmptyString(t *testing.T) {
	got, err := DecodeFilterParam("")
	if err != nil {
		t.Fatalf("DecodeFilterParam(\"\"): unexpected error: %v", err)
	}
	if diff := cmp.Diff(v1.NewFilter(), got); diff != "" {
		t.Errorf("DecodeFilterParam(\"\"): -want, +got:\n%s", diff)
	}
}

func TestDecodeFilterParamInvalidJSON(t *testing.T) {
	if _, err := DecodeFilterParam("{not json"); err == nil {
		t.Fatal("DecodeFilterParam(invalid): expected an error, got nil")
	} else if KindOf(err) != KindBadRequest {
		t.Errorf("DecodeFilterParam(invalid): got kind %s, want %s", KindOf(err), KindBadRequest)
	}
}
