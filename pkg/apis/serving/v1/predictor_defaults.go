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

	"k8s.io/utils/ptr"

	"github.com/kserve/servingctl/pkg/constants"
)

// Default fills unset fields with the platform defaults.
func (p *Predictor) Default() {
	if p.Name == "" {
		p.Name = strings.ReplaceAll(strings.ToLower(p.ModelName), "_", "-")
	}
	if p.ModelServer == "" {
		p.ModelServer = constants.ModelServerPython
	}
	if p.ServingTool == "" {
		p.ServingTool = constants.ServingToolDefault
	}
	if p.APIProtocol == "" {
		p.APIProtocol = constants.APIProtocolREST
	}
	if p.ArtifactVersion == "" {
		p.ArtifactVersion = constants.ArtifactVersionNew
	}
	p.Resources.Default()
	if p.Transformer != nil {
		p.Transformer.Resources.Default()
	}
	if p.InferenceLogger == nil {
		p.InferenceLogger = &InferenceLoggerConfig{}
	}
	p.InferenceLogger.Default()
	if p.InferenceBatcher == nil {
		p.InferenceBatcher = &InferenceBatcherConfig{}
	}
	p.InferenceBatcher.Default()
}

// Default fills the resources of a component that has none configured. The
// number of instances is kept once requests are given so that components can
// scale to zero.
func (r *Resources) Default() {
	if r.Requests.IsZero() {
		r.Requests = ResourceQuantities{
			Cores:  constants.DefaultCores,
			Memory: constants.DefaultMemory,
			GPUs:   constants.DefaultGPUs,
		}
		if r.NumInstances == 0 {
			r.NumInstances = constants.DefaultNumInstances
		}
	}
	if r.Limits.IsZero() {
		r.Limits = r.Requests
	}
}

func (c *InferenceLoggerConfig) Default() {
	if c.Mode != "" {
		return
	}
	if c.KafkaTopic != nil {
		c.Mode = constants.InferenceLoggingAll
	} else {
		c.Mode = constants.InferenceLoggingNone
	}
}

func (c *InferenceBatcherConfig) Default() {
	if !c.Enabled {
		return
	}
	if c.MaxBatchSize == nil {
		c.MaxBatchSize = ptr.To(constants.DefaultMaxBatchSize)
	}
	if c.MaxLatency == nil {
		c.MaxLatency = ptr.To(constants.DefaultMaxLatency)
	}
	if c.Timeout == nil {
		c.Timeout = ptr.To(constants.DefaultBatchTimeout)
	}
}
