// Copyright 2025 walteh LLC
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

package operation

import (
	"context"
	"sync"
	"time"

	"github.com/walteh/filefinder/pkg/status"
)

// ⏱️ watch calls OnProgress every interval until the returned stop func is
// called. stop waits for the ticker goroutine and then sends one last
// snapshot, so the final call always observes the finished run.
func (e *Engine) watch(ctx context.Context, t *status.Tracker) func() {
	if e.opts.OnProgress == nil {
		return func() {}
	}

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(e.opts.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				e.opts.OnProgress(t.Snapshot())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			e.opts.OnProgress(t.Snapshot())
		})
	}
}
