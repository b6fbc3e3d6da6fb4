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

package constants

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// servingctl Constants
var (
	ServingCtlName     = "servingctl"
	DefaultProjectName = getEnvOrDefault("SERVING_PROJECT_NAME", "default")
)

// DeploymentStatus is the status of a deployment as reported by the serving platform.
type DeploymentStatus string

// DeploymentStatus enums
const (
	StatusCreating DeploymentStatus = "CREATING"
	StatusCreated  DeploymentStatus = "CREATED"
	StatusStarting DeploymentStatus = "STARTING"
	StatusRunning  DeploymentStatus = "RUNNING"
	StatusIdle     DeploymentStatus = "IDLE"
	StatusUpdating DeploymentStatus = "UPDATING"
	StatusStopping DeploymentStatus = "STOPPING"
	StatusStopped  DeploymentStatus = "STOPPED"
	StatusFailed   DeploymentStatus = "FAILED"
)

// ConditionType is the kind of structured condition reported alongside a status.
type ConditionType string

// ConditionType enums
const (
	ConditionStopped     ConditionType = "STOPPED"
	ConditionScheduled   ConditionType = "SCHEDULED"
	ConditionInitialized ConditionType = "INITIALIZED"
	ConditionStarted     ConditionType = "STARTED"
	ConditionReady       ConditionType = "READY"
)

// StartSteps is the order in which conditions are reported while a deployment starts.
var StartSteps = []ConditionType{
	ConditionStopped,
	ConditionScheduled,
	ConditionInitialized,
	ConditionStarted,
	ConditionReady,
}

// StopSteps is the order in which conditions are reported while a deployment stops.
var StopSteps = []ConditionType{
	ConditionScheduled,
	ConditionStopped,
}

// Action is a lifecycle action applied to a deployment.
type Action string

// Action enums
const (
	ActionStart Action = "START"
	ActionStop  Action = "STOP"
)

// APIProtocol enums
const (
	APIProtocolREST = "REST"
	APIProtocolGRPC = "GRPC"
)

// ServingTool enums
const (
	ServingToolDefault = "DEFAULT"
	ServingToolKServe  = "KSERVE"
)

// ModelServer enums
const (
	ModelServerPython            = "PYTHON"
	ModelServerTensorflowServing = "TENSORFLOW_SERVING"
)

// InferenceLoggingMode enums
const (
	InferenceLoggingAll         = "ALL"
	InferenceLoggingPredictions = "PREDICTIONS"
	InferenceLoggingInputs      = "INPUTS"
	InferenceLoggingNone        = "NONE"
)

// Component is a runtime component of a deployment.
type Component string

// Component enums
const (
	PredictorComponent   Component = "predictor"
	TransformerComponent Component = "transformer"
)

// Remote application error codes
const (
	ErrorCodeServingNotFound      = 240000
	ErrorCodeIllegalArgument      = 240001
	ErrorCodeDuplicatedEntry      = 240011
	ErrorCodeDeploymentNotRunning = 250001
)

// Polling
const (
	PollInterval = 5 * time.Second
	// DefaultAwaitSeconds is the await budget used by the CLI when none is given.
	DefaultAwaitSeconds = 600
)

// Resource defaults
const (
	DefaultNumInstances = 1
	DefaultCores        = 1
	DefaultMemory       = 1024
	DefaultGPUs         = 0
)

// Inference batcher defaults
const (
	DefaultMaxBatchSize = 32
	DefaultMaxLatency   = 5000
	DefaultBatchTimeout = 60
)

// CloudEvent types emitted by the inference event sink
const (
	CEInferenceRequest  = "org.kserve.servingctl.inference.request"
	CEInferenceResponse = "org.kserve.servingctl.inference.response"
)

// Open inference protocol (v2) gRPC names
const (
	InferenceGRPCService    = "inference.GRPCInferenceService"
	InferenceGRPCModelInfer = "/" + InferenceGRPCService + "/ModelInfer"
)

// Artifacts
const (
	ArtifactsDirName   = "Artifacts"
	ArtifactVersionNew = "CREATE"
)

func (s DeploymentStatus) String() string {
	return string(s)
}

func (c ConditionType) String() string {
	return string(c)
}

func (c Component) String() string {
	return string(c)
}

func getEnvOrDefault(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// StartStepIndex returns the index of a condition in StartSteps, or -1.
func StartStepIndex(conditionType ConditionType) int {
	for i, step := range StartSteps {
		if step == conditionType {
			return i
		}
	}
	return -1
}

// PredictPrefix is the v1 REST predict path of a model.
func PredictPrefix(name string) string {
	return fmt.Sprintf("/v1/models/%s:predict", name)
}

// InferenceHostHeader is the Host header the ingress gateway routes on.
func InferenceHostHeader(deploymentName string, projectName string, domain string) string {
	return fmt.Sprintf("%s.%s.%s", deploymentName, strings.ReplaceAll(projectName, "_", "-"), domain)
}
