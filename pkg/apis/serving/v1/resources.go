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
	"github.com/kserve/servingctl/pkg/constants"
)

// Resources is the resource configuration of a predictor or transformer.
type Resources struct {
	// NumInstances is the number of requested instances. Zero scales the component to zero.
	NumInstances int `validate:"gte=0"`
	// Requests per instance
	Requests ResourceQuantities
	// Limits per instance
	Limits ResourceQuantities
}

// ResourceQuantities is an amount of compute resources.
type ResourceQuantities struct {
	// Cores is the number of CPUs.
	Cores int `validate:"gte=0"`
	// Memory in megabytes.
	Memory int `validate:"gte=0"`
	// GPUs is the number of GPUs.
	GPUs int `validate:"gte=0"`
}

// IsZero reports whether no quantity is set.
func (q ResourceQuantities) IsZero() bool {
	return q == ResourceQuantities{}
}

// Fits reports whether q fits within the limits l.
func (q ResourceQuantities) Fits(l ResourceQuantities) bool {
	return q.Cores <= l.Cores && q.Memory <= l.Memory && q.GPUs <= l.GPUs
}

// InferenceLoggerConfig configures the server-side inference logger of a deployment.
type InferenceLoggerConfig struct {
	// Mode is one of ALL, PREDICTIONS, INPUTS or NONE.
	Mode string `validate:"oneof=ALL PREDICTIONS INPUTS NONE"`
	// +optional
	KafkaTopic *KafkaTopicConfig
}

// LogsInputs reports whether inference requests are logged.
func (c *InferenceLoggerConfig) LogsInputs() bool {
	return c != nil && (c.Mode == constants.InferenceLoggingAll || c.Mode == constants.InferenceLoggingInputs)
}

// LogsPredictions reports whether inference responses are logged.
func (c *InferenceLoggerConfig) LogsPredictions() bool {
	return c != nil && (c.Mode == constants.InferenceLoggingAll || c.Mode == constants.InferenceLoggingPredictions)
}

// KafkaTopicConfig is the topic inference logs are written to.
type KafkaTopicConfig struct {
	Name string `validate:"required"`
	// +optional
	NumReplicas *int `validate:"omitempty,min=1"`
	// +optional
	NumPartitions *int `validate:"omitempty,min=1"`
}

// InferenceBatcherConfig configures server-side request batching.
type InferenceBatcherConfig struct {
	Enabled bool
	// +optional
	MaxBatchSize *int `validate:"omitempty,min=1"`
	// MaxLatency in milliseconds
	// +optional
	MaxLatency *int `validate:"omitempty,min=1"`
	// Timeout in seconds
	// +optional
	Timeout *int `validate:"omitempty,min=1"`
}
