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

package logger

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kserve/servingctl/pkg/constants"
)

type receivedEvent struct {
	header http.Header
	body   string
}

func TestDispatcherSendsCloudEvents(t *testing.T) {
	var mu sync.Mutex
	var received []receivedEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		received = append(received, receivedEvent{header: r.Header.Clone(), body: string(body)})
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	dispatcher, err := StartDispatcher(server.URL, 2, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.True(t, dispatcher.Enqueue(LogRequest{
		Body:        []byte(`{"instances": [[1, 2]]}`),
		ContentType: "application/json",
		ReqType:     InferenceRequest,
		ID:          "abc",
		Deployment:  "mnist",
		Project:     "demo",
		Component:   constants.PredictorComponent.String(),
	}))
	require.True(t, dispatcher.Enqueue(LogRequest{
		Body:        []byte(`{"predictions": [3]}`),
		ContentType: "application/json",
		ReqType:     InferenceResponse,
		ID:          "abc",
		Deployment:  "mnist",
		Project:     "demo",
	}))
	dispatcher.Stop()

	require.Len(t, received, 2)
	types := map[string]receivedEvent{}
	for _, event := range received {
		assert.Equal(t, "abc", event.header.Get("Ce-Id"))
		assert.Equal(t, "mnist", event.header.Get("Ce-Deployment"))
		assert.Equal(t, "demo", event.header.Get("Ce-Project"))
		assert.Equal(t, Source, event.header.Get("Ce-Source"))
		types[event.header.Get("Ce-Type")] = event
	}
	require.Contains(t, types, constants.CEInferenceRequest)
	require.Contains(t, types, constants.CEInferenceResponse)
	assert.JSONEq(t, `{"instances": [[1, 2]]}`, types[constants.CEInferenceRequest].body)
	assert.Equal(t, "predictor", types[constants.CEInferenceRequest].header.Get("Ce-Component"))
	assert.Empty(t, types[constants.CEInferenceResponse].header.Get("Ce-Component"))
}

type blockingClient struct {
	cloudevents.Client
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (c *blockingClient) Send(_ context.Context, _ cloudevents.Event) protocol.Result {
	<-c.release
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
	return protocol.ResultACK
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	client := &blockingClient{release: make(chan struct{})}
	dispatcher := startDispatcher(client, "http://sink.local", 1, zaptest.NewLogger(t).Sugar())

	accepted := 0
	for i := 0; i < DefaultQueueSize+2; i++ {
		if dispatcher.Enqueue(LogRequest{ID: "x", ReqType: InferenceRequest}) {
			accepted++
		}
	}
	assert.Less(t, accepted, DefaultQueueSize+2)

	close(client.release)
	dispatcher.Stop()
	assert.Equal(t, accepted, client.sent)
	assert.False(t, dispatcher.Enqueue(LogRequest{ID: "late"}))

	// Stopping twice is a no-op.
	dispatcher.Stop()
}

func TestStartDispatcherRejectsBadURL(t *testing.T) {
	_, err := StartDispatcher("not a url", 1, nil)
	assert.ErrorContains(t, err, "invalid log sink url")
}
