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

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
)

// ContainerEvent is the subset of a docker container lifecycle event the
// inbound reconciler acts on.
type ContainerEvent struct {
	Action      events.Action
	ContainerID string
	KindKey     string // from LabelKindKey, empty if not one of ours
	Kind        string // from LabelKind
	NodeName    string // from LabelNode
}

// Stream subscribes to the daemon's container event stream, scoped to
// containers carrying LabelKindKey. It returns a channel of decoded events
// and a channel of (at most one) terminal error. Both channels are closed
// when ctx is done or the underlying stream ends; the caller (the
// reconciler's ingestion loop) is responsible for reconnecting.
func (c *Client) Stream(ctx context.Context) (<-chan ContainerEvent, <-chan error) {
	f := filters.NewArgs()
	f.Add("type", string(events.ContainerEventType))
	f.Add("label", LabelKindKey)

	raw, errs := c.api.Events(ctx, events.ListOptions{Filters: f})

	out := make(chan ContainerEvent)
	outErr := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(outErr)

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				if err != nil {
					outErr <- err
					return
				}
			case msg, ok := <-raw:
				if !ok {
					return
				}
				out <- decodeEvent(msg)
			}
		}
	}()

	return out, outErr
}

func decodeEvent(msg events.Message) ContainerEvent {
	attrs := msg.Actor.Attributes
	return ContainerEvent{
		Action:      msg.Action,
		ContainerID: msg.Actor.ID,
		KindKey:     attrs[LabelKindKey],
		Kind:        attrs[LabelKind],
		NodeName:    attrs[LabelNode],
	}
}
