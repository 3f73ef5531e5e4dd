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

package dockerclient

import (
	"context"
	"encoding/base64"
	"io"

	"github.com/docker/docker/api/types/filters"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

func encodeAuth(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// ensureImage pulls ref according to policy: Always always pulls,
// IfNotPresent only pulls when the image is missing locally, Never never
// pulls and surfaces the missing-image error from ContainerCreate instead.
func (c *Client) ensureImage(ctx context.Context, ref string, policy v1.ImagePullPolicy) error {
	if policy == v1.PullNever {
		return nil
	}

	if policy == v1.PullIfNotPresent {
		present, err := c.imagePresent(ctx, ref)
		if err != nil {
			return err
		}
		if present {
			return nil
		}
	}

	return c.Pull(ctx, ref)
}

func (c *Client) imagePresent(ctx context.Context, ref string) (bool, error) {
	f := filters.NewArgs()
	f.Add("reference", ref)

	images, err := c.api.ImageList(ctx, typesimage.ListOptions{Filters: f})
	if err != nil {
		return false, errors.Wrapf(err, "cannot list images for %s", ref)
	}
	return len(images) > 0, nil
}

// Pull pulls ref unconditionally, resolving registry auth from the default
// keychain (docker config, cloud-provider credential helpers). It blocks
// until the pull completes or fails.
func (c *Client) Pull(ctx context.Context, ref string) error {
	opts, err := pullOptions(ref)
	if err != nil {
		// A bad reference or unresolvable auth isn't fatal on its own: try
		// the pull anyway, it may be a public image.
		c.log.Debug("cannot resolve pull auth, attempting anonymous pull", "image", ref, "error", err)
	}

	out, err := c.api.ImagePull(ctx, ref, opts)
	if err != nil {
		return errors.Wrapf(err, "cannot pull image %s", ref)
	}
	defer out.Close() //nolint:errcheck // nothing actionable if the close fails

	_, err = io.Copy(io.Discard, out)
	return errors.Wrapf(err, "cannot pull image %s", ref)
}

func pullOptions(ref string) (typesimage.PullOptions, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return typesimage.PullOptions{}, errors.Wrapf(err, "%s is not a valid image reference", ref)
	}

	auth, err := authn.DefaultKeychain.Resolve(parsed.Context().Registry)
	if err != nil {
		return typesimage.PullOptions{}, errors.Wrapf(err, "cannot resolve auth for %s", parsed.Context().RegistryStr())
	}

	cfg, err := auth.Authorization()
	if err != nil {
		return typesimage.PullOptions{}, errors.Wrapf(err, "cannot get auth config for %s", parsed.Context().RegistryStr())
	}

	raw, err := cfg.MarshalJSON()
	if err != nil {
		return typesimage.PullOptions{}, errors.Wrap(err, "cannot marshal auth config")
	}

	return typesimage.PullOptions{RegistryAuth: encodeAuth(raw)}, nil
}
