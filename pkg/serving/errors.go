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
	"fmt"

	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/inference"
)

var (
	// ErrDeploymentNotFound is returned when the serving platform no longer
	// knows the deployment.
	ErrDeploymentNotFound = errors.New("deployment not found")
	// ErrDeploymentNotSaved is returned by operations that need a persisted
	// deployment.
	ErrDeploymentNotSaved = errors.New("deployment is not created yet, create it with save first")
)

// ValidationError reports invalid caller input: a malformed inference payload
// or deployment metadata. It is never retried.
type ValidationError = inference.ValidationError

// LifecycleStateError reports an operation that is illegal in the current
// remote state. The operation is not attempted.
type LifecycleStateError struct {
	Deployment string
	Status     constants.DeploymentStatus
	Message    string
}

func (e *LifecycleStateError) Error() string {
	return fmt.Sprintf("deployment %s (%s): %s", e.Deployment, e.Status, e.Message)
}

// TimeoutError reports an await budget exhausted before the target status was
// reached. The remote operation may still be in progress.
type TimeoutError struct {
	Deployment   string
	Target       constants.DeploymentStatus
	Last         constants.DeploymentStatus
	AwaitSeconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deployment %s has not reached the %s status within %d seconds (last status %s). "+
		"Check the current status with the status command, explore the server logs with the logs command "+
		"or set a higher await value", e.Deployment, e.Target, e.AwaitSeconds, e.Last)
}

// DeploymentFailedError reports a deployment that failed while waiting for it
// to run.
type DeploymentFailedError struct {
	Deployment string
	Reason     string
	// Component is set when the failure happened while instances were
	// initializing or starting.
	Component constants.Component
}

func (e *DeploymentFailedError) Error() string {
	msg := fmt.Sprintf("deployment %s failed: %s", e.Deployment, e.Reason)
	if e.Component != "" {
		msg += fmt.Sprintf(". Please, check the server logs with the logs command using --component %s", e.Component)
	}
	return msg
}

// isRemoteFailure reports whether err comes from the serving platform or the
// transport rather than from the lifecycle state machine.
func isRemoteFailure(err error) bool {
	var stateErr *LifecycleStateError
	var timeoutErr *TimeoutError
	var failedErr *DeploymentFailedError
	switch {
	case err == nil:
		return false
	case errors.As(err, &stateErr), errors.As(err, &timeoutErr), errors.As(err, &failedErr):
		return false
	case errors.Is(err, ErrDeploymentNotFound):
		return false
	}
	return true
}
