/*
Copyright 2025 The KServe Authors.

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

package serving

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
	testingclock "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/inference"
	"github.com/kserve/servingctl/pkg/logger"
)

type statusResult struct {
	status *v1.PredictorStatus
	err    error
}

// fakeAPI replays scripted status snapshots and records every mutating call.
type fakeAPI struct {
	mu sync.Mutex

	statuses    []statusResult
	statusCalls int

	nextID   int
	putErr   error
	puts     []*v1.Predictor
	existing map[string]*v1.Predictor

	actions    []constants.Action
	actionErrs map[constants.Action]error

	deleted   []int
	deleteErr error

	logs        []client.DeploymentLog
	logRequests []logRequest

	predictResp   []byte
	predictErr    error
	predictBodies [][]byte

	dataset      []byte
	datasetPaths []string
}

type logRequest struct {
	component constants.Component
	tail      int
}

var _ ServingAPI = (*fakeAPI)(nil)

func newFakeAPI(statuses ...*v1.PredictorStatus) *fakeAPI {
	f := &fakeAPI{nextID: 1, existing: map[string]*v1.Predictor{}, actionErrs: map[constants.Action]error{}}
	for _, s := range statuses {
		f.statuses = append(f.statuses, statusResult{status: s})
	}
	return f
}

func (f *fakeAPI) thenStatus(s *v1.PredictorStatus) *fakeAPI {
	f.statuses = append(f.statuses, statusResult{status: s})
	return f
}

func (f *fakeAPI) thenError(err error) *fakeAPI {
	f.statuses = append(f.statuses, statusResult{err: err})
	return f
}

func (f *fakeAPI) PutDeployment(_ context.Context, p *v1.Predictor) (*v1.Predictor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recorded := *p
	f.puts = append(f.puts, &recorded)
	if f.putErr != nil {
		return nil, f.putErr
	}
	copied := *p
	if copied.ID == nil {
		copied.ID = ptr.To(f.nextID)
		f.nextID++
	}
	copied.Creator = "tester"
	f.existing[copied.Name] = &copied
	out := copied
	return &out, nil
}

func (f *fakeAPI) GetDeploymentByName(_ context.Context, name string) (*v1.Predictor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.existing[name]
	if !ok {
		return nil, &client.RestAPIError{StatusCode: http.StatusNotFound, ErrorCode: constants.ErrorCodeServingNotFound}
	}
	out := *p
	return &out, nil
}

func (f *fakeAPI) GetStatus(_ context.Context, _ int) (*v1.PredictorStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, errors.New("no status scripted")
	}
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[i].status, f.statuses[i].err
}

func (f *fakeAPI) PostAction(_ context.Context, _ int, action constants.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return f.actionErrs[action]
}

func (f *fakeAPI) DeleteDeployment(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAPI) GetLogs(_ context.Context, _ int, component constants.Component, tail int) ([]client.DeploymentLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logRequests = append(f.logRequests, logRequest{component: component, tail: tail})
	return f.logs, nil
}

func (f *fakeAPI) Predict(_ context.Context, _ *v1.Predictor, body []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictBodies = append(f.predictBodies, body)
	return f.predictResp, f.predictErr
}

func (f *fakeAPI) DownloadDataset(_ context.Context, path string, w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasetPaths = append(f.datasetPaths, path)
	n, err := w.Write(f.dataset)
	return int64(n), err
}

func (f *fakeAPI) actionCount(action constants.Action) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if a == action {
			n++
		}
	}
	return n
}

type fakeChannel struct {
	mu     sync.Mutex
	models []string
	inputs [][]inference.InferInput
	result *inference.InferResult
	err    error
	closed int
}

func (c *fakeChannel) Infer(_ context.Context, modelName string, inputs []inference.InferInput) (*inference.InferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append(c.models, modelName)
	c.inputs = append(c.inputs, inputs)
	return c.result, c.err
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	requests []logger.LogRequest
	stopped  bool
}

func (s *recordingSink) Enqueue(logReq logger.LogRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, logReq)
	return true
}

func (s *recordingSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

type testEnv struct {
	api      *fakeAPI
	clock    *testingclock.FakeClock
	channels []*fakeChannel
	sink     *recordingSink
	progress []Progress
	ctrl     *Controller
}

func newTestEnv(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()
	env := &testEnv{
		api:   api,
		clock: testingclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		sink:  &recordingSink{},
	}
	ctrl, err := NewController(api, Options{
		Clock:      env.clock,
		Logger:     zaptest.NewLogger(t).Sugar(),
		Registerer: prometheus.NewRegistry(),
		Channels: func(*v1.Predictor) (InferenceChannel, error) {
			ch := &fakeChannel{result: &inference.InferResult{ModelName: "mnist"}}
			env.channels = append(env.channels, ch)
			return ch, nil
		},
		Sink:          env.sink,
		Progress:      func(p Progress) { env.progress = append(env.progress, p) },
		ArtifactsRoot: t.TempDir(),
		ProjectName:   "demo",
	})
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	env.ctrl = ctrl
	return env
}

func (e *testEnv) lastProgress() Progress {
	if len(e.progress) == 0 {
		return Progress{}
	}
	return e.progress[len(e.progress)-1]
}

func newPredictor() *v1.Predictor {
	return &v1.Predictor{
		Name:         "mnist",
		ModelName:    "mnist",
		ModelPath:    "/Projects/demo/Models/mnist",
		ModelVersion: 1,
		ModelServer:  constants.ModelServerTensorflowServing,
		Resources:    v1.Resources{NumInstances: 1},
	}
}

func savedDeployment() *Deployment {
	p := newPredictor()
	p.ID = ptr.To(7)
	p.Default()
	return NewDeployment(p)
}

func grpcDeployment() *Deployment {
	d := savedDeployment()
	d.ServingTool = constants.ServingToolKServe
	d.APIProtocol = constants.APIProtocolGRPC
	return d
}

func snapshot(status constants.DeploymentStatus, available int) *v1.PredictorStatus {
	return &v1.PredictorStatus{Status: status, AvailablePredictorInstances: available}
}

func conditioned(status constants.DeploymentStatus, available int, condType constants.ConditionType,
	condStatus *bool, reason string) *v1.PredictorStatus {
	s := snapshot(status, available)
	s.Condition = &v1.Condition{Type: condType, Status: condStatus, Reason: reason}
	return s
}

func restError(statusCode int, errorCode int) *client.RestAPIError {
	return &client.RestAPIError{StatusCode: statusCode, Reason: http.StatusText(statusCode), ErrorCode: errorCode}
}
