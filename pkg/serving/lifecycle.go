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

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
)

// Start starts the deployment and waits up to awaitSeconds for it to run.
// Deployments already running, starting, updating or failed are left as they
// are. When the serving platform fails during the start sequence a stop
// action is issued before the error is returned.
func (c *Controller) Start(ctx context.Context, d *Deployment, awaitSeconds int) (err error) {
	defer c.instrument(operationStart, c.clock.Now(), &err)

	if !d.IsSaved() {
		return nil
	}
	status, err := c.refresh(ctx, d)
	if err != nil {
		return err
	}
	done, err := c.checkStart(d, status)
	if err != nil {
		return err
	}
	if !done {
		status, err = c.start(ctx, d, status, awaitSeconds)
		if err != nil {
			if isRemoteFailure(err) {
				c.rollback(ctx, d, err)
			}
			return err
		}
	}

	if status == nil || status.Status != constants.StatusRunning {
		return nil
	}
	if d.RequiresChannel() {
		if _, err := c.ensureChannel(d); err != nil {
			return err
		}
	}
	c.logger.Infow("Start making predictions", "deployment", d.Name)
	return nil
}

func (c *Controller) start(ctx context.Context, d *Deployment, status *v1.PredictorStatus,
	awaitSeconds int) (*v1.PredictorStatus, error) {
	tr := newTracker(operationStart, startBudget(d), descCreating, c.progress)
	onTick := tr.starting(d)
	onTick(status, 0)

	fetch := c.statusFunc(d)
	if status.Status == constants.StatusCreating {
		if _, err := c.poller.Poll(ctx, d, fetch, constants.StatusCreated, awaitSeconds, onTick); err != nil {
			return nil, err
		}
	}
	if err := c.api.PostAction(ctx, d.id(), constants.ActionStart); err != nil {
		return nil, err
	}
	return c.poller.Poll(ctx, d, fetch, constants.StatusRunning, awaitSeconds, onTick)
}

func (c *Controller) rollback(ctx context.Context, d *Deployment, cause error) {
	c.logger.Warnw("Failed to start deployment, stopping it", "deployment", d.Name, "error", cause)
	c.metrics.rollbacks.Inc()
	if err := c.api.PostAction(context.WithoutCancel(ctx), d.id(), constants.ActionStop); err != nil {
		c.logger.Warnw("Failed to stop deployment", "deployment", d.Name, "error", err)
	}
	c.releaseChannel(d)
}

func (c *Controller) checkStart(d *Deployment, status *v1.PredictorStatus) (bool, error) {
	switch status.Status {
	case constants.StatusRunning, constants.StatusIdle:
		c.logger.Infow("Deployment is already running", "deployment", d.Name)
		return true, nil
	case constants.StatusStarting:
		c.logger.Infow("Deployment is already starting", "deployment", d.Name)
		return true, nil
	case constants.StatusUpdating:
		c.logger.Infow("Deployment is already running and updating", "deployment", d.Name)
		return true, nil
	case constants.StatusFailed:
		c.logger.Infow("Deployment is in failed state", "deployment", d.Name, "reason", status.ConditionReason())
		return true, nil
	case constants.StatusStopping:
		return false, stateError(d, status, "Deployment is stopping, please wait until it completely stops")
	}
	return false, nil
}

// Stop stops the deployment and waits up to awaitSeconds for it to stop. The
// inference channel of the deployment is released even if waiting fails.
func (c *Controller) Stop(ctx context.Context, d *Deployment, awaitSeconds int) (err error) {
	defer c.instrument(operationStop, c.clock.Now(), &err)

	if !d.IsSaved() {
		return nil
	}
	status, err := c.refresh(ctx, d)
	if err != nil {
		return err
	}
	done, err := c.checkStop(d, status)
	if err != nil {
		return err
	}
	defer c.releaseChannel(d)
	if done {
		return nil
	}

	available := status.AvailableInstances()
	tr := newTracker(operationStop, stopBudget(d, available), descPreparingStop, c.progress)
	onTick := tr.stopping(d)
	onTick(status, available)

	if err := c.api.PostAction(ctx, d.id(), constants.ActionStop); err != nil {
		return err
	}
	_, err = c.poller.Poll(ctx, d, c.statusFunc(d), constants.StatusStopped, awaitSeconds, onTick)
	return err
}

func (c *Controller) checkStop(d *Deployment, status *v1.PredictorStatus) (bool, error) {
	switch status.Status {
	case constants.StatusCreating, constants.StatusCreated, constants.StatusStopped:
		c.logger.Infow("Deployment is already stopped", "deployment", d.Name)
		return true, nil
	case constants.StatusStopping:
		c.logger.Infow("Deployment is already stopping", "deployment", d.Name)
		return true, nil
	case constants.StatusStarting:
		if status.HasCondition() {
			return false, stateError(d, status, "Deployment is starting, please wait until it completely starts")
		}
	case constants.StatusUpdating:
		if status.HasCondition() {
			return false, stateError(d, status, "Deployment is updating, please wait until the update completes")
		}
	}
	return false, nil
}
