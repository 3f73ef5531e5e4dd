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

package controller

import (
	"context"
	"encoding/json"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/nanocl-dev/nanocl/internal/circuit"
)

// RuleClient is the subset of HTTPRuleClient BreakerRuleClient wraps.
type RuleClient interface {
	ApplyRule(ctx context.Context, controllerURL, name string, data json.RawMessage) error
	RemoveRule(ctx context.Context, controllerURL, name string) error
}

// BreakerRuleClient gates RuleClient calls behind a circuit.Breaker keyed on
// controllerURL, so a hung ncproxy/ncdns socket stops absorbing a request
// per resource write instead of timing out every one of them individually.
// It satisfies orchestrator.ControllerClient, the same as HTTPRuleClient.
type BreakerRuleClient struct {
	next    RuleClient
	breaker circuit.Breaker
}

// NewBreakerRuleClient wraps next with breaker.
func NewBreakerRuleClient(next RuleClient, breaker circuit.Breaker) *BreakerRuleClient {
	return &BreakerRuleClient{next: next, breaker: breaker}
}

// ApplyRule calls next.ApplyRule unless controllerURL's circuit is open.
func (c *BreakerRuleClient) ApplyRule(ctx context.Context, controllerURL, name string, data json.RawMessage) error {
	return c.guard(ctx, controllerURL, name, func() error {
		return c.next.ApplyRule(ctx, controllerURL, name, data)
	})
}

// RemoveRule calls next.RemoveRule unless controllerURL's circuit is open.
func (c *BreakerRuleClient) RemoveRule(ctx context.Context, controllerURL, name string) error {
	return c.guard(ctx, controllerURL, name, func() error {
		return c.next.RemoveRule(ctx, controllerURL, name)
	})
}

func (c *BreakerRuleClient) guard(ctx context.Context, controllerURL, name string, call func() error) error {
	source := circuit.EventSource{Kind: "controller", Name: name}
	if state := c.breaker.GetState(ctx, controllerURL); state.IsOpen {
		return errors.Errorf("controller %s circuit open until %s", controllerURL, state.NextAllowedAt)
	}
	if err := call(); err != nil {
		c.breaker.RecordEvent(ctx, controllerURL, source)
		return err
	}
	c.breaker.RecordAllowed(ctx, controllerURL)
	return nil
}
