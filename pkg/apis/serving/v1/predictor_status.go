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

// Condition is a structured status-reason pair describing progress toward a
// target lifecycle state.
type Condition struct {
	Type constants.ConditionType `json:"type"`
	// Status is unset while the condition has not been reached.
	// +optional
	Status *bool  `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// PredictorStatus is an immutable snapshot of the remote status of a deployment.
type PredictorStatus struct {
	Status constants.DeploymentStatus `json:"status"`
	// Condition is absent on backends without condition reporting.
	// +optional
	Condition                   *Condition `json:"condition,omitempty"`
	AvailablePredictorInstances int        `json:"availableInstances"`
	// AvailableTransformerInstances is present iff the deployment has a transformer.
	// +optional
	AvailableTransformerInstances *int   `json:"availableTransformerInstances,omitempty"`
	InferencePath                 string `json:"hopsworksInferencePath,omitempty"`
	ModelServerInferencePath      string `json:"modelServerInferencePath,omitempty"`
	InternalPort                  int    `json:"internalPort,omitempty"`
	Revision                      string `json:"revision,omitempty"`
}

// AvailableInstances is the number of available predictor and transformer
// instances. Nothing is available while the deployment is being created.
func (s *PredictorStatus) AvailableInstances() int {
	if s.Status == constants.StatusCreating {
		return 0
	}
	instances := s.AvailablePredictorInstances
	if s.AvailableTransformerInstances != nil {
		instances += *s.AvailableTransformerInstances
	}
	return instances
}

// HasCondition reports whether the snapshot carries a structured condition.
func (s *PredictorStatus) HasCondition() bool {
	return s.Condition != nil
}

// ConditionReason returns the condition reason, or an empty string.
func (s *PredictorStatus) ConditionReason() string {
	if s.Condition == nil {
		return ""
	}
	return s.Condition.Reason
}
