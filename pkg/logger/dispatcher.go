/*
Copyright 2021 The KServe Authors.

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

package logger

import (
	"net/url"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize = 100
	Source           = "servingctl"
)

// Dispatcher publishes inference payloads as CloudEvents through a pool of
// workers.
type Dispatcher struct {
	logger    *zap.SugaredLogger
	workQueue chan LogRequest
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// StartDispatcher starts nworkers sending to sinkURL.
func StartDispatcher(sinkURL string, nworkers int, logger *zap.SugaredLogger) (*Dispatcher, error) {
	if _, err := url.ParseRequestURI(sinkURL); err != nil {
		return nil, errors.Wrapf(err, "invalid log sink url %q", sinkURL)
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, errors.Wrap(err, "while creating new cloudevents client")
	}
	return startDispatcher(client, sinkURL, nworkers, logger), nil
}

func startDispatcher(client cloudevents.Client, sinkURL string, nworkers int, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if nworkers <= 0 {
		nworkers = 1
	}
	d := &Dispatcher{
		logger:    logger,
		workQueue: make(chan LogRequest, DefaultQueueSize),
	}
	for i := 0; i < nworkers; i++ {
		logger.Debugw("Starting worker", "worker", i+1)
		NewWorker(i+1, d.workQueue, client, sinkURL, Source, logger).Start(&d.wg)
	}
	return d
}

// Enqueue queues logReq without blocking. It reports false when the queue is
// full or the dispatcher is stopped, in which case the request is dropped.
func (d *Dispatcher) Enqueue(logReq LogRequest) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.workQueue <- logReq:
		return true
	default:
		d.logger.Warnw("Inference log queue is full, dropping event", "id", logReq.ID, "type", logReq.ReqType)
		return false
	}
}

// Stop sends the queued requests and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.workQueue)
	d.mu.Unlock()
	d.wg.Wait()
}
