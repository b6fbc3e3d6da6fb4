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

package v1

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"k8s.io/utils/ptr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fields only present in the legacy deployment schema. Documents carrying any
// of them are migrated on decode.
var legacySchemaFields = []string{
	"predictorResourceConfig",
	"transformerResourceConfig",
	"batchingEnabled",
	"numInstances",
	"cores",
}

// deployment wire format
//
//	{
//	  "id": 12,
//	  "name": "mnist",
//	  "modelName": "mnist",
//	  "modelPath": "/Projects/demo/Models/mnist",
//	  "modelVersion": 1,
//	  "artifactVersion": "1",
//	  "modelServer": "PYTHON",
//	  "servingTool": "KSERVE",
//	  "apiProtocol": "REST",
//	  "predictor": "predictor.py",
//	  "requestedInstances": 1,
//	  "predictorResources": {"requests": {"cores": 1, "memory": 1024, "gpus": 0}, "limits": {...}},
//	  "inferenceLogging": "ALL",
//	  "kafkaTopicDTO": {"name": "mnist_inf"},
//	  "batchingConfiguration": {"batchingEnabled": false}
//	}
type predictorWire struct {
	ID                            *int            `json:"id,omitempty"`
	Name                          string          `json:"name"`
	Description                   string          `json:"description,omitempty"`
	ModelName                     string          `json:"modelName"`
	ModelPath                     string          `json:"modelPath"`
	ModelVersion                  int             `json:"modelVersion"`
	ArtifactVersion               string          `json:"artifactVersion,omitempty"`
	ModelServer                   string          `json:"modelServer"`
	ServingTool                   string          `json:"servingTool"`
	APIProtocol                   string          `json:"apiProtocol,omitempty"`
	Predictor                     string          `json:"predictor,omitempty"`
	RequestedInstances            int             `json:"requestedInstances"`
	PredictorResources            *resourcesWire  `json:"predictorResources,omitempty"`
	Transformer                   string          `json:"transformer,omitempty"`
	RequestedTransformerInstances *int            `json:"requestedTransformerInstances,omitempty"`
	TransformerResources          *resourcesWire  `json:"transformerResources,omitempty"`
	InferenceLogging              string          `json:"inferenceLogging,omitempty"`
	KafkaTopic                    *kafkaTopicWire `json:"kafkaTopicDTO,omitempty"`
	BatchingConfiguration         *batchingWire   `json:"batchingConfiguration,omitempty"`
	Created                       string          `json:"created,omitempty"`
	Creator                       string          `json:"creator,omitempty"`
}

type resourcesWire struct {
	Requests *quantitiesWire `json:"requests,omitempty"`
	Limits   *quantitiesWire `json:"limits,omitempty"`
}

type quantitiesWire struct {
	Cores  int `json:"cores"`
	Memory int `json:"memory"`
	GPUs   int `json:"gpus"`
}

type kafkaTopicWire struct {
	Name            string `json:"name"`
	NumOfReplicas   *int   `json:"numOfReplicas,omitempty"`
	NumOfPartitions *int   `json:"numOfPartitions,omitempty"`
}

type batchingWire struct {
	BatchingEnabled bool `json:"batchingEnabled"`
	MaxBatchSize    *int `json:"maxBatchSize,omitempty"`
	MaxLatency      *int `json:"maxLatency,omitempty"`
	Timeout         *int `json:"timeout,omitempty"`
}

// legacyPredictorWire holds the fields of the legacy schema that differ from
// the current one.
type legacyPredictorWire struct {
	PredictorResourceConfig   *quantitiesWire `json:"predictorResourceConfig,omitempty"`
	TransformerResourceConfig *quantitiesWire `json:"transformerResourceConfig,omitempty"`
	Cores                     *int            `json:"cores,omitempty"`
	Memory                    *int            `json:"memory,omitempty"`
	GPUs                      *int            `json:"gpus,omitempty"`
	BatchingEnabled           *bool           `json:"batchingEnabled,omitempty"`
	NumInstances              *int            `json:"numInstances,omitempty"`
}

// IsLegacySchema reports whether a deployment document uses the legacy schema.
func IsLegacySchema(data []byte) bool {
	for _, field := range legacySchemaFields {
		if gjson.GetBytes(data, field).Exists() {
			return true
		}
	}
	return false
}

// Encode serializes a predictor using the current schema.
func Encode(p *Predictor) ([]byte, error) {
	w := predictorWire{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		ModelName:          p.ModelName,
		ModelPath:          p.ModelPath,
		ModelVersion:       p.ModelVersion,
		ArtifactVersion:    p.ArtifactVersion,
		ModelServer:        p.ModelServer,
		ServingTool:        p.ServingTool,
		APIProtocol:        p.APIProtocol,
		Predictor:          p.ScriptFile,
		RequestedInstances: p.Resources.NumInstances,
		PredictorResources: encodeResources(p.Resources),
		Created:            p.Created,
		Creator:            p.Creator,
	}
	if p.Transformer != nil {
		w.Transformer = p.Transformer.ScriptFile
		instances := p.Transformer.Resources.NumInstances
		w.RequestedTransformerInstances = &instances
		w.TransformerResources = encodeResources(p.Transformer.Resources)
	}
	if p.InferenceLogger != nil {
		w.InferenceLogging = p.InferenceLogger.Mode
		if t := p.InferenceLogger.KafkaTopic; t != nil {
			w.KafkaTopic = &kafkaTopicWire{Name: t.Name, NumOfReplicas: t.NumReplicas, NumOfPartitions: t.NumPartitions}
		}
	}
	if b := p.InferenceBatcher; b != nil {
		w.BatchingConfiguration = &batchingWire{
			BatchingEnabled: b.Enabled,
			MaxBatchSize:    b.MaxBatchSize,
			MaxLatency:      b.MaxLatency,
			Timeout:         b.Timeout,
		}
	}
	data, err := json.Marshal(&w)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode deployment %s", p.Name)
	}
	return data, nil
}

// Decode parses a deployment document, migrating the legacy schema.
func Decode(data []byte) (*Predictor, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid deployment document: %.64q", data)
	}
	w := &predictorWire{}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, errors.Wrap(err, "failed to decode deployment")
	}
	if IsLegacySchema(data) {
		legacy := &legacyPredictorWire{}
		if err := json.Unmarshal(data, legacy); err != nil {
			return nil, errors.Wrap(err, "failed to decode legacy deployment")
		}
		migrate(w, legacy, data)
	}
	return w.toPredictor(), nil
}

// DecodeList parses either a single deployment, a JSON array of deployments or
// a collection {"count": n, "items": [...]}.
func DecodeList(data []byte) ([]*Predictor, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid deployment list: %.64q", data)
	}
	root := gjson.ParseBytes(data)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.Get("items").Exists() || root.Get("count").Exists():
		items = root.Get("items").Array()
	default:
		items = []gjson.Result{root}
	}
	predictors := make([]*Predictor, 0, len(items))
	for _, item := range items {
		p, err := Decode([]byte(item.Raw))
		if err != nil {
			return nil, err
		}
		predictors = append(predictors, p)
	}
	return predictors, nil
}

// DecodeStatus parses the status fields of a deployment document.
func DecodeStatus(data []byte) (*PredictorStatus, error) {
	status := &PredictorStatus{}
	if err := json.Unmarshal(data, status); err != nil {
		return nil, errors.Wrap(err, "failed to decode deployment status")
	}
	if status.Status == "" {
		return nil, fmt.Errorf("deployment status is missing from %.64q", data)
	}
	return status, nil
}

func migrate(w *predictorWire, legacy *legacyPredictorWire, data []byte) {
	if w.PredictorResources == nil {
		q := legacy.PredictorResourceConfig
		if q == nil && (legacy.Cores != nil || legacy.Memory != nil || legacy.GPUs != nil) {
			q = &quantitiesWire{Cores: ptr.Deref(legacy.Cores, 0), Memory: ptr.Deref(legacy.Memory, 0), GPUs: ptr.Deref(legacy.GPUs, 0)}
		}
		if q != nil {
			w.PredictorResources = &resourcesWire{Requests: q, Limits: q}
		}
	}
	if w.TransformerResources == nil && legacy.TransformerResourceConfig != nil {
		q := legacy.TransformerResourceConfig
		w.TransformerResources = &resourcesWire{Requests: q, Limits: q}
	}
	if !gjson.GetBytes(data, "requestedInstances").Exists() && legacy.NumInstances != nil {
		w.RequestedInstances = *legacy.NumInstances
	}
	if w.BatchingConfiguration == nil && legacy.BatchingEnabled != nil {
		w.BatchingConfiguration = &batchingWire{BatchingEnabled: *legacy.BatchingEnabled}
	}
}

func (w *predictorWire) toPredictor() *Predictor {
	p := &Predictor{
		ID:              w.ID,
		Name:            w.Name,
		Description:     w.Description,
		ModelName:       w.ModelName,
		ModelPath:       w.ModelPath,
		ModelVersion:    w.ModelVersion,
		ArtifactVersion: w.ArtifactVersion,
		ModelServer:     w.ModelServer,
		ServingTool:     w.ServingTool,
		APIProtocol:     w.APIProtocol,
		ScriptFile:      w.Predictor,
		Resources:       decodeResources(w.RequestedInstances, w.PredictorResources),
		Created:         w.Created,
		Creator:         w.Creator,
	}
	if w.Transformer != "" {
		p.Transformer = &Transformer{
			ScriptFile: w.Transformer,
			Resources:  decodeResources(ptr.Deref(w.RequestedTransformerInstances, 0), w.TransformerResources),
		}
	}
	if w.InferenceLogging != "" || w.KafkaTopic != nil {
		p.InferenceLogger = &InferenceLoggerConfig{Mode: w.InferenceLogging}
		if w.KafkaTopic != nil {
			p.InferenceLogger.KafkaTopic = &KafkaTopicConfig{
				Name:          w.KafkaTopic.Name,
				NumReplicas:   w.KafkaTopic.NumOfReplicas,
				NumPartitions: w.KafkaTopic.NumOfPartitions,
			}
		}
	}
	if b := w.BatchingConfiguration; b != nil {
		p.InferenceBatcher = &InferenceBatcherConfig{
			Enabled:      b.BatchingEnabled,
			MaxBatchSize: b.MaxBatchSize,
			MaxLatency:   b.MaxLatency,
			Timeout:      b.Timeout,
		}
	}
	return p
}

func encodeResources(r Resources) *resourcesWire {
	return &resourcesWire{
		Requests: &quantitiesWire{Cores: r.Requests.Cores, Memory: r.Requests.Memory, GPUs: r.Requests.GPUs},
		Limits:   &quantitiesWire{Cores: r.Limits.Cores, Memory: r.Limits.Memory, GPUs: r.Limits.GPUs},
	}
}

func decodeResources(instances int, w *resourcesWire) Resources {
	r := Resources{NumInstances: instances}
	if w == nil {
		return r
	}
	if w.Requests != nil {
		r.Requests = ResourceQuantities{Cores: w.Requests.Cores, Memory: w.Requests.Memory, GPUs: w.Requests.GPUs}
	}
	if w.Limits != nil {
		r.Limits = ResourceQuantities{Cores: w.Limits.Cores, Memory: w.Limits.Memory, GPUs: w.Limits.GPUs}
	}
	return r
}
