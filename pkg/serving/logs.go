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

	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/constants"
)

const defaultLogTail = 10

// GetLogs returns the last tail log lines of each instance of a component.
// Stopping and stopped deployments have no server logs and return nil.
func (c *Controller) GetLogs(ctx context.Context, d *Deployment, component constants.Component, tail int) ([]client.DeploymentLog, error) {
	if component == "" {
		component = constants.PredictorComponent
	}
	if tail <= 0 {
		tail = defaultLogTail
	}
	switch component {
	case constants.PredictorComponent:
	case constants.TransformerComponent:
		if !d.HasTransformer() {
			return nil, &ValidationError{Message: "deployment " + d.Name + " has no transformer"}
		}
	default:
		return nil, &ValidationError{Message: "unknown component " + string(component) + ", expected predictor or transformer"}
	}

	status, err := c.GetState(ctx, d)
	if err != nil {
		return nil, err
	}
	switch status.Status {
	case constants.StatusStopping:
		c.logger.Infow("Deployment is stopping, explore historical logs in the serving UI", "deployment", d.Name)
		return nil, nil
	case constants.StatusStopped:
		c.logger.Infow("Deployment not running, explore historical logs in the serving UI", "deployment", d.Name)
		return nil, nil
	case constants.StatusStarting:
		c.logger.Warnw("Deployment is starting, server logs might not be ready yet", "deployment", d.Name)
	}
	return c.api.GetLogs(ctx, d.id(), component, tail)
}
