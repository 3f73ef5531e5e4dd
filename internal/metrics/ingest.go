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

package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// Repository is the subset of store.Repository[v1.Metric] Ingester needs.
type Repository interface {
	CreateFrom(ctx context.Context, columns []string, values []any, row *v1.Metric) error
}

// cpuSample and memSample mirror the fields of metrsd's event shape that
// save_metric actually reads (per-cpu usage and memory used/total); the
// rest of the payload is opaque and stored verbatim as Data.
type cpuSample struct {
	Usage float64 `json:"usage"`
}

type memSample struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

type sample struct {
	CPUs   []cpuSample `json:"cpus"`
	Memory memSample   `json:"memory"`
}

// Ingester dials metrsd's Unix socket, reads newline-delimited JSON
// samples, and inserts one metrics row per sample with kind
// nanocl.io/metrs.
type Ingester struct {
	socketPath string
	nodeName   string
	repo       Repository
	counters   *Counters
	log        logging.Logger
}

// NewIngester builds an Ingester reading socketPath, tagging every row
// with nodeName.
func NewIngester(socketPath, nodeName string, repo Repository, counters *Counters, log logging.Logger) *Ingester {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Ingester{socketPath: socketPath, nodeName: nodeName, repo: repo, counters: counters, log: log}
}

// Run dials and ingests until ctx is canceled, reconnecting every 2
// seconds on dial or stream failure (mirrors the source's own
// reconnect-after-2s loop).
func (in *Ingester) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := in.runOnce(ctx); err != nil {
			in.log.Debug("metrsd connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (in *Ingester) runOnce(ctx context.Context) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", in.socketPath)
	if err != nil {
		return errors.Wrapf(err, "cannot dial %s", in.socketPath)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		in.ingestLine(ctx, scanner.Bytes())
	}
	return scanner.Err()
}

func (in *Ingester) ingestLine(ctx context.Context, line []byte) {
	var ev sample
	if err := json.Unmarshal(line, &ev); err != nil {
		in.countError()
		return
	}

	var cpuPercent float64
	for _, c := range ev.CPUs {
		cpuPercent += c.Usage
	}
	if len(ev.CPUs) > 0 {
		cpuPercent /= float64(len(ev.CPUs))
	}
	memPercent := float64(0)
	if ev.Memory.Total > 0 {
		memPercent = float64(ev.Memory.Used) / float64(ev.Memory.Total) * 100
	}
	note := fmt.Sprintf("CPU %02d%% | MEMORY %02d%%", int(cpuPercent), int(memPercent))

	row := v1.Metric{
		Key:       uuid.NewString(),
		Kind:      v1.MetricKindMetrsd,
		Data:      append([]byte(nil), line...),
		NodeName:  in.nodeName,
		Note:      note,
		CreatedAt: time.Now(),
	}
	columns := []string{"key", "kind", "data", "node_name", "note", "created_at"}
	values := []any{row.Key, row.Kind, row.Data, row.NodeName, row.Note, row.CreatedAt}
	if err := in.repo.CreateFrom(ctx, columns, values, &row); err != nil {
		in.log.Debug("cannot persist metrsd sample", "error", err)
		in.countError()
		return
	}
	if in.counters != nil {
		in.counters.Samples.WithLabelValues(row.Kind).Inc()
	}
}

func (in *Ingester) countError() {
	if in.counters != nil {
		in.counters.Errors.Inc()
	}
}
