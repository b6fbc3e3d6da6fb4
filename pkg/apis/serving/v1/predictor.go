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
	"strings"

	"github.com/kserve/servingctl/pkg/constants"
)

// Predictor is the metadata of a single-model deployment: the model it serves
// and how the predictor (and optional transformer) components run.
type Predictor struct {
	// ID is assigned by the serving platform once the deployment is persisted.
	// +optional
	ID *int
	// Name of the deployment, unique within a project.
	Name        string `validate:"required"`
	Description string
	// Model being served
	ModelName       string `validate:"required"`
	ModelPath       string `validate:"required"`
	ModelVersion    int    `validate:"min=1"`
	ArtifactVersion string
	// Runtime
	ModelServer string `validate:"oneof=PYTHON TENSORFLOW_SERVING"`
	ServingTool string `validate:"oneof=DEFAULT KSERVE"`
	APIProtocol string `validate:"oneof=REST GRPC"`
	// ScriptFile is the predictor script, required by the python model server.
	// +optional
	ScriptFile string
	Resources  Resources
	// +optional
	Transformer      *Transformer
	InferenceLogger  *InferenceLoggerConfig
	InferenceBatcher *InferenceBatcherConfig
	// Set by the serving platform
	Created string
	Creator string
}

// Transformer is the optional pre/post-processing component of a deployment.
type Transformer struct {
	ScriptFile string `validate:"required"`
	Resources  Resources
}

// HasTransformer reports whether a transformer is configured.
func (p *Predictor) HasTransformer() bool {
	return p.Transformer != nil
}

// RequestedInstances is the number of instances the deployment asks for,
// counting both the predictor and the transformer.
func (p *Predictor) RequestedInstances() int {
	instances := p.Resources.NumInstances
	if p.Transformer != nil {
		instances += p.Transformer.Resources.NumInstances
	}
	return instances
}

// RequiresChannel reports whether predictions go through a persistent gRPC channel.
func (p *Predictor) RequiresChannel() bool {
	return p.ServingTool == constants.ServingToolKServe && p.APIProtocol == constants.APIProtocolGRPC
}

// IsSaved reports whether the deployment has been persisted.
func (p *Predictor) IsSaved() bool {
	return p.ID != nil
}

// InferenceLoggingMode returns the logging mode, NONE when logging is not configured.
func (p *Predictor) InferenceLoggingMode() string {
	if p.InferenceLogger == nil || p.InferenceLogger.Mode == "" {
		return constants.InferenceLoggingNone
	}
	return p.InferenceLogger.Mode
}

// ArtifactPath is the location of the zipped model artifact of this deployment.
func (p *Predictor) ArtifactPath() string {
	return fmt.Sprintf("%s/%d/%s/%s.zip",
		strings.TrimSuffix(p.ModelPath, "/"), p.ModelVersion, constants.ArtifactsDirName, p.ArtifactVersion)
}

// String implements fmt.Stringer.
func (p *Predictor) String() string {
	id := "<unsaved>"
	if p.ID != nil {
		id = fmt.Sprint(*p.ID)
	}
	return fmt.Sprintf("%s (id=%s, model=%s:%d)", p.Name, id, p.ModelName, p.ModelVersion)
}
