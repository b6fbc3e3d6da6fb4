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
	"strings"
	"testing"

	"github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/kserve/servingctl/pkg/constants"
)

func makeTestPredictor() *Predictor {
	return &Predictor{
		Name:         "mnist",
		ModelName:    "mnist",
		ModelPath:    "/Projects/demo/Models/mnist",
		ModelVersion: 1,
		ModelServer:  constants.ModelServerPython,
		ServingTool:  constants.ServingToolKServe,
		APIProtocol:  constants.APIProtocolREST,
		ScriptFile:   "predictor.py",
		Resources: Resources{
			NumInstances: 1,
			Requests:     ResourceQuantities{Cores: 1, Memory: 1024},
			Limits:       ResourceQuantities{Cores: 2, Memory: 2048},
		},
	}
}

func TestRequestedInstances(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	p := makeTestPredictor()
	g.Expect(p.RequestedInstances()).To(gomega.Equal(1))

	p.Transformer = &Transformer{ScriptFile: "transformer.py", Resources: Resources{NumInstances: 2}}
	g.Expect(p.RequestedInstances()).To(gomega.Equal(3))
	g.Expect(p.HasTransformer()).To(gomega.BeTrue())
}

func TestRequiresChannel(t *testing.T) {
	scenarios := map[string]struct {
		servingTool string
		protocol    string
		expected    bool
	}{
		"KServeGRPC":  {servingTool: constants.ServingToolKServe, protocol: constants.APIProtocolGRPC, expected: true},
		"KServeREST":  {servingTool: constants.ServingToolKServe, protocol: constants.APIProtocolREST, expected: false},
		"DefaultREST": {servingTool: constants.ServingToolDefault, protocol: constants.APIProtocolREST, expected: false},
	}
	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			g := gomega.NewGomegaWithT(t)
			p := makeTestPredictor()
			p.ServingTool = scenario.servingTool
			p.APIProtocol = scenario.protocol
			g.Expect(p.RequiresChannel()).To(gomega.Equal(scenario.expected))
		})
	}
}

func TestArtifactPath(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	p := makeTestPredictor()
	p.ModelPath = "/Projects/demo/Models/mnist/"
	p.ArtifactVersion = "3"
	g.Expect(p.ArtifactPath()).To(gomega.Equal("/Projects/demo/Models/mnist/1/Artifacts/3.zip"))
}

func TestInferenceLoggingMode(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	p := makeTestPredictor()
	g.Expect(p.InferenceLoggingMode()).To(gomega.Equal(constants.InferenceLoggingNone))

	p.InferenceLogger = &InferenceLoggerConfig{Mode: constants.InferenceLoggingInputs}
	g.Expect(p.InferenceLoggingMode()).To(gomega.Equal(constants.InferenceLoggingInputs))
	g.Expect(p.InferenceLogger.LogsInputs()).To(gomega.BeTrue())
	g.Expect(p.InferenceLogger.LogsPredictions()).To(gomega.BeFalse())
}

func TestPredictorString(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	p := makeTestPredictor()
	g.Expect(p.String()).To(gomega.ContainSubstring("<unsaved>"))
	p.ID = ptr.To(7)
	g.Expect(strings.Contains(p.String(), "id=7")).To(gomega.BeTrue())
}

func TestAvailableInstances(t *testing.T) {
	scenarios := map[string]struct {
		status   PredictorStatus
		expected int
	}{
		"CreatingReportsNothing": {
			status:   PredictorStatus{Status: constants.StatusCreating, AvailablePredictorInstances: 2},
			expected: 0,
		},
		"PredictorOnly": {
			status:   PredictorStatus{Status: constants.StatusRunning, AvailablePredictorInstances: 2},
			expected: 2,
		},
		"WithTransformer": {
			status: PredictorStatus{
				Status:                        constants.StatusStarting,
				AvailablePredictorInstances:   1,
				AvailableTransformerInstances: ptr.To(1),
			},
			expected: 2,
		},
	}
	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			g := gomega.NewGomegaWithT(t)
			g.Expect(scenario.status.AvailableInstances()).To(gomega.Equal(scenario.expected))
		})
	}
}

func TestConditionReason(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	status := PredictorStatus{Status: constants.StatusRunning}
	g.Expect(status.HasCondition()).To(gomega.BeFalse())
	g.Expect(status.ConditionReason()).To(gomega.BeEmpty())

	status.Condition = &Condition{Type: constants.ConditionReady, Status: ptr.To(true), Reason: "ready"}
	g.Expect(status.HasCondition()).To(gomega.BeTrue())
	g.Expect(status.ConditionReason()).To(gomega.Equal("ready"))
}
