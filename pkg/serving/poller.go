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
	"strings"

	"k8s.io/utils/clock"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
)

// StatusFunc fetches the current status of a deployment.
type StatusFunc func(ctx context.Context) (*v1.PredictorStatus, error)

// TickFunc is invoked with every snapshot fetched while polling, together with
// the number of available instances.
type TickFunc func(status *v1.PredictorStatus, instances int)

// Poller waits for a deployment to reach a status, fetching a snapshot every
// PollInterval.
type Poller struct {
	Clock   clock.Clock
	Metrics *Metrics
}

// Poll waits up to awaitSeconds, truncated to whole ticks, for the deployment
// to reach target. A non-positive awaitSeconds returns immediately with a nil
// snapshot. Reaching FAILED while waiting for RUNNING is an error, as is
// running out of ticks.
func (p *Poller) Poll(ctx context.Context, d *Deployment, fetch StatusFunc, target constants.DeploymentStatus,
	awaitSeconds int, onTick TickFunc) (*v1.PredictorStatus, error) {
	if awaitSeconds <= 0 {
		return nil, nil
	}
	ticks := awaitSeconds / int(constants.PollInterval.Seconds())
	var last constants.DeploymentStatus
	for i := 0; i < ticks; i++ {
		p.Clock.Sleep(constants.PollInterval)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if p.Metrics != nil {
			p.Metrics.polls.WithLabelValues(string(target)).Inc()
		}
		d.observe(status)
		last = status.Status
		if onTick != nil {
			onTick(status, status.AvailableInstances())
		}
		if status.Status == target {
			return status, nil
		}
		if target == constants.StatusRunning && status.Status == constants.StatusFailed {
			return nil, failedError(d, status)
		}
	}
	return nil, &TimeoutError{Deployment: d.Name, Target: target, Last: last, AwaitSeconds: awaitSeconds}
}

func failedError(d *Deployment, status *v1.PredictorStatus) *DeploymentFailedError {
	err := &DeploymentFailedError{Deployment: d.Name, Reason: status.ConditionReason()}
	if cond := status.Condition; cond != nil &&
		(cond.Type == constants.ConditionInitialized || cond.Type == constants.ConditionStarted) {
		err.Component = constants.PredictorComponent
		if strings.Contains(cond.Reason, string(constants.TransformerComponent)) {
			err.Component = constants.TransformerComponent
		}
	}
	return err
}
