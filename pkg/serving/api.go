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
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/inference"
	"github.com/kserve/servingctl/pkg/logger"
	"github.com/kserve/servingctl/pkg/types"
)

// ServingAPI is the remote serving platform.
type ServingAPI interface {
	PutDeployment(ctx context.Context, p *v1.Predictor) (*v1.Predictor, error)
	GetDeploymentByName(ctx context.Context, name string) (*v1.Predictor, error)
	GetStatus(ctx context.Context, id int) (*v1.PredictorStatus, error)
	PostAction(ctx context.Context, id int, action constants.Action) error
	DeleteDeployment(ctx context.Context, id int) error
	GetLogs(ctx context.Context, id int, component constants.Component, tail int) ([]client.DeploymentLog, error)
	Predict(ctx context.Context, p *v1.Predictor, body []byte) ([]byte, error)
	DownloadDataset(ctx context.Context, path string, w io.Writer) (int64, error)
}

var _ ServingAPI = (*client.Client)(nil)

// InferenceChannel is a persistent binary protocol channel to a running deployment.
type InferenceChannel interface {
	Infer(ctx context.Context, modelName string, inputs []inference.InferInput) (*inference.InferResult, error)
	Close() error
}

var _ InferenceChannel = (*inference.Channel)(nil)

// ChannelFactory opens an inference channel to a deployment.
type ChannelFactory func(p *v1.Predictor) (InferenceChannel, error)

// EventSink publishes inference requests and responses.
type EventSink interface {
	Enqueue(logReq logger.LogRequest) bool
	Stop()
}

var _ EventSink = (*logger.Dispatcher)(nil)

// NewChannelFactory opens gRPC channels through the configured ingress gateway.
func NewChannelFactory(cfg *types.ServingConfig, log *zap.SugaredLogger) ChannelFactory {
	return func(p *v1.Predictor) (InferenceChannel, error) {
		if cfg.GRPCAddress == "" {
			return nil, errors.Errorf("no gRPC address configured for deployment %s, set SERVING_GRPC_ADDRESS", p.Name)
		}
		channel, err := inference.NewChannel(inference.ChannelOptions{
			Target:             cfg.GRPCAddress,
			Authority:          constants.InferenceHostHeader(p.Name, cfg.ProjectName, cfg.Domain),
			APIKey:             cfg.APIKey,
			Insecure:           cfg.GRPCInsecure,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}, log)
		if err != nil {
			return nil, err
		}
		return channel, nil
	}
}
