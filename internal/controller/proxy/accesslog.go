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

package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	v1 "github.com/nanocl-dev/nanocl/apis/nanocl/v1"
)

// MetricPoster posts a single metric sample to the daemon (the narrow slice
// of orchestrator.Notifier's REST equivalent a sibling process talks to
// over the core API rather than in-process).
type MetricPoster interface {
	PostMetric(ctx context.Context, p v1.MetricPartial) error
}

// AccessLogTailer polls http.log/stream.log for new lines and re-posts
// each one as an ncproxy.io/http or ncproxy.io/stream metric. It polls on
// an interval rather than a filesystem watch, a correct (if less
// immediate) substitute for a log file that's appended to, never
// truncated mid-line.
type AccessLogTailer struct {
	fs       afero.Fs
	logDir   string
	poster   MetricPoster
	interval time.Duration
	log      logging.Logger

	offsets map[string]int64
}

// NewAccessLogTailer builds a tailer polling logDir/http.log and
// logDir/stream.log every interval.
func NewAccessLogTailer(fs afero.Fs, logDir string, poster MetricPoster, interval time.Duration, log logging.Logger) *AccessLogTailer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &AccessLogTailer{fs: fs, logDir: logDir, poster: poster, interval: interval, log: log, offsets: map[string]int64{}}
}

// Run polls until ctx is canceled.
func (t *AccessLogTailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx, "http.log", v1.MetricKindProxyHTTP)
			t.pollOnce(ctx, "stream.log", v1.MetricKindProxyStream)
		}
	}
}

func (t *AccessLogTailer) pollOnce(ctx context.Context, name, metricKind string) {
	path := filepath.Join(t.logDir, name)
	f, err := t.fs.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	if offset, ok := t.offsets[name]; ok {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			t.offsets[name] = 0
		}
	}

	scanner := bufio.NewScanner(f)
	var lastLine string
	for scanner.Scan() {
		lastLine = scanner.Text()
		if lastLine == "" {
			continue
		}
		data, err := json.Marshal(map[string]string{"line": lastLine})
		if err != nil {
			continue
		}
		if err := t.poster.PostMetric(ctx, v1.MetricPartial{Kind: metricKind, Data: data}); err != nil {
			t.log.Debug("cannot post access log metric", "file", name, "error", err)
		}
	}
	if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
		t.offsets[name] = pos
	}
}
