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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onsi/gomega"
	"github.com/tidwall/gjson"
	"k8s.io/utils/ptr"

	"github.com/kserve/servingctl/pkg/constants"
)

const currentSchemaDeployment = `{
  "id": 12,
  "name": "mnist",
  "modelName": "mnist",
  "modelPath": "/Projects/demo/Models/mnist",
  "modelVersion": 1,
  "artifactVersion": "1",
  "modelServer": "PYTHON",
  "servingTool": "KSERVE",
  "apiProtocol": "GRPC",
  "predictor": "predictor.py",
  "requestedInstances": 2,
  "predictorResources": {"requests": {"cores": 1, "memory": 1024, "gpus": 0}, "limits": {"cores": 2, "memory": 2048, "gpus": 1}},
  "transformer": "transformer.py",
  "requestedTransformerInstances": 1,
  "transformerResources": {"requests": {"cores": 1, "memory": 512, "gpus": 0}},
  "inferenceLogging": "PREDICTIONS",
  "kafkaTopicDTO": {"name": "mnist_inf", "numOfReplicas": 1, "numOfPartitions": 3},
  "batchingConfiguration": {"batchingEnabled": true, "maxBatchSize": 16},
  "status": "RUNNING",
  "availableInstances": 2
}`

const legacySchemaDeployment = `{
  "id": 3,
  "name": "iris",
  "modelName": "iris",
  "modelPath": "/Projects/demo/Models/iris",
  "modelVersion": 4,
  "modelServer": "TENSORFLOW_SERVING",
  "servingTool": "DEFAULT",
  "numInstances": 3,
  "predictorResourceConfig": {"cores": 2, "memory": 4096, "gpus": 0},
  "batchingEnabled": true
}`

func TestDecodeCurrentSchema(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	g.Expect(IsLegacySchema([]byte(currentSchemaDeployment))).To(gomega.BeFalse())

	p, err := Decode([]byte(currentSchemaDeployment))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	expected := &Predictor{
		ID:              ptr.To(12),
		Name:            "mnist",
		ModelName:       "mnist",
		ModelPath:       "/Projects/demo/Models/mnist",
		ModelVersion:    1,
		ArtifactVersion: "1",
		ModelServer:     constants.ModelServerPython,
		ServingTool:     constants.ServingToolKServe,
		APIProtocol:     constants.APIProtocolGRPC,
		ScriptFile:      "predictor.py",
		Resources: Resources{
			NumInstances: 2,
			Requests:     ResourceQuantities{Cores: 1, Memory: 1024},
			Limits:       ResourceQuantities{Cores: 2, Memory: 2048, GPUs: 1},
		},
		Transformer: &Transformer{
			ScriptFile: "transformer.py",
			Resources: Resources{
				NumInstances: 1,
				Requests:     ResourceQuantities{Cores: 1, Memory: 512},
			},
		},
		InferenceLogger: &InferenceLoggerConfig{
			Mode:       constants.InferenceLoggingPredictions,
			KafkaTopic: &KafkaTopicConfig{Name: "mnist_inf", NumReplicas: ptr.To(1), NumPartitions: ptr.To(3)},
		},
		InferenceBatcher: &InferenceBatcherConfig{Enabled: true, MaxBatchSize: ptr.To(16)},
	}
	if diff := cmp.Diff(expected, p); diff != "" {
		t.Errorf("Test %q unexpected result (-want +got): %v", t.Name(), diff)
	}
}

func TestDecodeLegacySchema(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	g.Expect(IsLegacySchema([]byte(legacySchemaDeployment))).To(gomega.BeTrue())

	p, err := Decode([]byte(legacySchemaDeployment))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(p.Resources).To(gomega.Equal(Resources{
		NumInstances: 3,
		Requests:     ResourceQuantities{Cores: 2, Memory: 4096},
		Limits:       ResourceQuantities{Cores: 2, Memory: 4096},
	}))
	g.Expect(p.InferenceBatcher).To(gomega.Equal(&InferenceBatcherConfig{Enabled: true}))
	g.Expect(p.Transformer).To(gomega.BeNil())
	g.Expect(p.InferenceLogger).To(gomega.BeNil())
}

func TestDecodeLegacyFlatResources(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	p, err := Decode([]byte(`{"name": "iris", "modelName": "iris", "cores": 1, "memory": 256, "gpus": 1, "requestedInstances": 2, "numInstances": 5}`))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(p.Resources.Requests).To(gomega.Equal(ResourceQuantities{Cores: 1, Memory: 256, GPUs: 1}))
	g.Expect(p.Resources.NumInstances).To(gomega.Equal(2))
}

func TestEncodeUsesCurrentSchema(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	legacy, err := Decode([]byte(legacySchemaDeployment))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	data, err := Encode(legacy)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(IsLegacySchema(data)).To(gomega.BeFalse())
	g.Expect(gjson.GetBytes(data, "predictorResources.requests.memory").Int()).To(gomega.Equal(int64(4096)))
	g.Expect(gjson.GetBytes(data, "requestedInstances").Int()).To(gomega.Equal(int64(3)))
	g.Expect(gjson.GetBytes(data, "batchingConfiguration.batchingEnabled").Bool()).To(gomega.BeTrue())
	g.Expect(gjson.GetBytes(data, "transformer").Exists()).To(gomega.BeFalse())

	again, err := Decode(data)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	if diff := cmp.Diff(legacy, again); diff != "" {
		t.Errorf("Test %q unexpected result (-want +got): %v", t.Name(), diff)
	}
}

func TestDecodeList(t *testing.T) {
	scenarios := map[string]struct {
		body     string
		expected []string
	}{
		"Array": {
			body:     `[{"name": "a"}, {"name": "b"}]`,
			expected: []string{"a", "b"},
		},
		"Collection": {
			body:     `{"count": 1, "items": [{"name": "a"}]}`,
			expected: []string{"a"},
		},
		"EmptyCollection": {
			body:     `{"count": 0}`,
			expected: []string{},
		},
		"SingleDocument": {
			body:     `{"name": "a"}`,
			expected: []string{"a"},
		},
	}
	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			g := gomega.NewGomegaWithT(t)
			predictors, err := DecodeList([]byte(scenario.body))
			g.Expect(err).NotTo(gomega.HaveOccurred())
			names := []string{}
			for _, p := range predictors {
				names = append(names, p.Name)
			}
			g.Expect(names).To(gomega.Equal(scenario.expected))
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	_, err := Decode([]byte(`{"name": `))
	g.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("invalid deployment document")))
	_, err = DecodeList([]byte(`[`))
	g.Expect(err).To(gomega.HaveOccurred())
}

func TestDecodeStatus(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	status, err := DecodeStatus([]byte(`{
	  "status": "STARTING",
	  "condition": {"type": "INITIALIZED", "status": true, "reason": "Predictor initialized"},
	  "availableInstances": 1,
	  "availableTransformerInstances": 0,
	  "hopsworksInferencePath": "/project/119/models/mnist:predict"
	}`))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(status).To(gomega.Equal(&PredictorStatus{
		Status:                        constants.StatusStarting,
		Condition:                     &Condition{Type: constants.ConditionInitialized, Status: ptr.To(true), Reason: "Predictor initialized"},
		AvailablePredictorInstances:   1,
		AvailableTransformerInstances: ptr.To(0),
		InferencePath:                 "/project/119/models/mnist:predict",
	}))

	_, err = DecodeStatus([]byte(`{"availableInstances": 1}`))
	g.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("deployment status is missing")))
}
