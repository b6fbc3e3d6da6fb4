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
	"net/http"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/inference"
	"github.com/kserve/servingctl/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const jsonContentType = "application/json"

// Prediction is the response of an inference request. Body is set for REST
// deployments and Result for binary protocol deployments.
type Prediction struct {
	Body   map[string]interface{}
	Result *inference.InferResult
}

// Marshal encodes the prediction as JSON.
func (p *Prediction) Marshal() ([]byte, error) {
	if p.Result != nil {
		return p.Result.Marshal()
	}
	return json.Marshal(p.Body)
}

// Predict sends an inference request built from exactly one of data and
// inputs. Requests and responses are published to the event sink according
// to the inference logging mode of the deployment.
func (c *Controller) Predict(ctx context.Context, d *Deployment, data interface{}, inputs interface{}) (*Prediction, error) {
	payload, err := inference.ValidateAndBuild(d.APIProtocol, data, inputs)
	if err != nil {
		return nil, err
	}

	eventID := uuid.NewString()
	if d.InferenceLogger.LogsInputs() {
		if body, err := payload.Marshal(); err == nil {
			c.publish(d, eventID, logger.InferenceRequest, body)
		}
	}

	var prediction *Prediction
	if payload.IsBinary() {
		ch, err := c.ensureChannel(d)
		if err != nil {
			return nil, err
		}
		result, err := ch.Infer(ctx, d.Name, payload.Inputs)
		if err != nil {
			return nil, errors.Wrap(err, "inference request failed, check the model server logs")
		}
		prediction = &Prediction{Result: result}
	} else {
		body, err := payload.Marshal()
		if err != nil {
			return nil, err
		}
		resp, err := c.api.Predict(ctx, d.Predictor, body)
		if err != nil {
			return nil, predictError(d, err)
		}
		out := map[string]interface{}{}
		if err := json.Unmarshal(resp, &out); err != nil {
			return nil, errors.Wrap(err, "failed to decode inference response")
		}
		prediction = &Prediction{Body: out}
	}

	if d.InferenceLogger.LogsPredictions() {
		if body, err := prediction.Marshal(); err == nil {
			c.publish(d, eventID, logger.InferenceResponse, body)
		}
	}
	return prediction, nil
}

func predictError(d *Deployment, err error) error {
	if apiErr, ok := client.AsRestAPIError(err); ok {
		if apiErr.StatusCode == http.StatusNotFound || apiErr.ErrorCode == constants.ErrorCodeDeploymentNotRunning {
			return &LifecycleStateError{
				Deployment: d.Name,
				Message:    "Deployment not created or running. If it is already created, start it or check its status",
			}
		}
	}
	return errors.Wrap(err, "inference request failed, check the model server logs")
}

func (c *Controller) publish(d *Deployment, id string, reqType logger.LogRequestType, body []byte) {
	if c.sink == nil {
		return
	}
	c.sink.Enqueue(logger.LogRequest{
		Body:        body,
		ContentType: jsonContentType,
		ReqType:     reqType,
		ID:          id,
		Deployment:  d.Name,
		Project:     c.projectName,
		Component:   string(constants.PredictorComponent),
	})
}
