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
	"context"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"

	"github.com/kserve/servingctl/pkg/constants"
)

const (
	// CloudEvent extension attributes.
	DeploymentExtension = "deployment"
	ProjectExtension    = "project"
	ComponentExtension  = "component"

	sendTimeout = 60 * time.Second
)

// NewWorker creates a worker that publishes the requests it receives on work.
func NewWorker(id int, work <-chan LogRequest, client cloudevents.Client, target string, source string, log *zap.SugaredLogger) *Worker {
	return &Worker{
		Log:    log,
		ID:     id,
		Work:   work,
		Client: client,
		Target: target,
		Source: source,
	}
}

type Worker struct {
	Log    *zap.SugaredLogger
	ID     int
	Work   <-chan LogRequest
	Client cloudevents.Client
	Target string
	Source string
}

func (w *Worker) sendCloudEvent(logReq LogRequest) error {
	event := cloudevents.NewEvent()
	event.SetID(logReq.ID)
	if logReq.ReqType == InferenceRequest {
		event.SetType(constants.CEInferenceRequest)
	} else {
		event.SetType(constants.CEInferenceResponse)
	}
	event.SetSource(w.Source)
	event.SetExtension(DeploymentExtension, logReq.Deployment)
	event.SetExtension(ProjectExtension, logReq.Project)
	if logReq.Component != "" {
		event.SetExtension(ComponentExtension, logReq.Component)
	}
	if err := event.SetData(logReq.ContentType, logReq.Body); err != nil {
		return fmt.Errorf("while setting cloudevents data: %w", err)
	}

	ctx, cancel := context.WithTimeout(cloudevents.ContextWithTarget(context.Background(), w.Target), sendTimeout)
	defer cancel()
	if result := w.Client.Send(ctx, event); !cloudevents.IsACK(result) {
		return fmt.Errorf("while sending event: %w", result)
	}
	return nil
}

// Start consumes work until the work channel is closed.
func (w *Worker) Start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for work := range w.Work {
			w.Log.Debugw("Received work request", "worker", w.ID, "id", work.ID, "type", work.ReqType)
			if err := w.sendCloudEvent(work); err != nil {
				w.Log.Errorw("Failed to send log", "worker", w.ID, "target", w.Target, "error", err)
			}
		}
		w.Log.Debugw("Worker stopping", "worker", w.ID)
	}()
}
