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

package vmdisk

import (
	"bytes"
	"context"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/spf13/afero"
)

// FuzzStoreImport feeds Import arbitrary names and byte content, the same
// way internal/xpkg's FuzzFindXpkgInDir drives afero-backed code with
// go-fuzz-headers' Consumer instead of hand-written edge cases.
func FuzzStoreImport(f *testing.F) {
	f.Add([]byte{0, 0, 0, 4, 'b', 'a', 's', 'e', 0, 0, 0, 3, 'q', 'c', 'o'})
	f.Fuzz(func(t *testing.T, data []byte) {
		ff := fuzz.NewConsumer(data)
		name, err := ff.GetString()
		if err != nil {
			t.Skip()
		}
		content, err := ff.GetBytes()
		if err != nil {
			t.Skip()
		}

		s := New(afero.NewMemMapFs(), "/state/vms/images", newFakeImageRepo())
		ctx := context.Background()

		// Import must never panic, regardless of how pathological name is: an
		// empty name, one containing "..", separators, or null bytes all
		// either succeed as a literal path component under the images dir or
		// fail with an ordinary error.
		img, err := s.Import(ctx, name, bytes.NewReader(content))
		if err != nil {
			return
		}
		if img.SizeBytes != int64(len(content)) {
			t.Errorf("Import(%q, ...): SizeBytes = %d, want %d", name, img.SizeBytes, len(content))
		}
	})
}
