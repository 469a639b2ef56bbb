// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"log/slog"
	"time"
)

// withRetry runs fn up to maxAttempts times with a linearly increasing
// backoff between attempts, matching the bounded-retry shape of the
// teacher's OllamaEmbedder.EmbedDocument loop (pkg/embedding/ollama.go):
// no external backoff library, attempt-indexed sleep, last error returned
// on exhaustion. Wraps the Indexing Worker's Vector Store Gateway add and
// remove calls (§4.7 retry policy); it retries every error fn returns and
// does not inspect the error's Kind.
func withRetry(ctx context.Context, maxAttempts int, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		slog.Debug("worker: transient failure, retrying", "op", op, "attempt", attempt+1, "error", err)
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
			}
		}
	}
	return err
}
