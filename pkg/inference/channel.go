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

package inference

import (
	"context"
	"crypto/tls"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/kserve/servingctl/pkg/constants"
)

// ChannelOptions configures a gRPC inference channel.
type ChannelOptions struct {
	// Target is the address of the ingress gateway, host:port.
	Target string
	// Authority overrides the :authority header the gateway routes on.
	Authority string
	APIKey    string
	// Insecure disables TLS.
	Insecure           bool
	InsecureSkipVerify bool
	// DialOptions are appended to the options derived from the fields above.
	DialOptions []grpc.DialOption
}

// Channel is a persistent gRPC channel to one deployment, speaking the open
// inference protocol. Connections are established lazily on the first call.
type Channel struct {
	conn   *grpc.ClientConn
	apiKey string
	msgs   *inferenceMessages
	logger *zap.SugaredLogger
}

// NewChannel creates a channel. No connection is attempted until Infer is called.
func NewChannel(opts ChannelOptions, logger *zap.SugaredLogger) (*Channel, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	msgs, err := loadInferenceMessages()
	if err != nil {
		return nil, err
	}
	var dialOpts []grpc.DialOption
	if opts.Authority != "" {
		dialOpts = append(dialOpts, grpc.WithAuthority(opts.Authority))
	}
	if opts.Insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		cred := credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify, // #nosec G402
		})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(cred))
	}
	dialOpts = append(dialOpts, opts.DialOptions...)
	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create inference channel to %s", opts.Target)
	}
	logger.Infow("created inference channel", "target", opts.Target, "authority", opts.Authority)
	return &Channel{conn: conn, apiKey: opts.APIKey, msgs: msgs, logger: logger}, nil
}

// Infer sends a ModelInfer request for the model.
func (c *Channel) Infer(ctx context.Context, modelName string, inputs []InferInput) (*InferResult, error) {
	req, err := newModelInferRequest(c.msgs, modelName, inputs)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "ApiKey "+c.apiKey)
	}
	resp := dynamicpb.NewMessage(c.msgs.response)
	if err := c.conn.Invoke(ctx, constants.InferenceGRPCModelInfer, req, resp); err != nil {
		return nil, errors.Wrapf(err, "inference request to model %s failed", modelName)
	}
	return decodeModelInferResponse(c.msgs, resp)
}

// Close tears down the channel.
func (c *Channel) Close() error {
	c.logger.Infow("closing inference channel", "target", c.conn.Target())
	return c.conn.Close()
}
