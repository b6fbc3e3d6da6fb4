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
	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/utils"
)

const (
	descReady          = "Deployment is ready"
	descStarting       = "Deployment is starting"
	descFailedToStart  = "Deployment failed to start"
	descStopped        = "Deployment is stopped"
	descStopping       = "Deployment is stopping"
	descCreating       = "Creating deployment"
	descPreparingStop  = "Preparing to stop deployment"
	operationStart     = "start"
	operationStop      = "stop"
	stopConditionSteps = 2
)

// Progress is a progress bar update of a lifecycle operation.
type Progress struct {
	Operation   string
	N           int
	Total       int
	Description string
}

// ProgressFunc receives progress updates. It is called on the goroutine
// running the lifecycle operation.
type ProgressFunc func(Progress)

// Accountant maps status snapshots to progress bar steps. Without condition
// reporting, steps count available instances.
type Accountant struct {
	ConditionReporting bool
}

func (a Accountant) legacy(status *v1.PredictorStatus) bool {
	return !a.ConditionReporting || status.Condition == nil
}

// Starting returns the progress delta from current and an optional
// description for a snapshot taken while starting.
func (a Accountant) Starting(current int, status *v1.PredictorStatus, instances int) (int, string) {
	if a.legacy(status) {
		delta := instances - current
		switch {
		case status.Status == constants.StatusRunning:
			return delta, descReady
		case current == 0:
			return delta, ""
		default:
			return delta, descStarting
		}
	}

	cond := status.Condition
	step := constants.StartStepIndex(cond.Type)
	if step < 0 {
		return 0, cond.Reason
	}
	if cond.Type == constants.ConditionStarted || cond.Type == constants.ConditionReady {
		step += instances
	}
	delta := step - current
	switch {
	case cond.Type == constants.ConditionStopped:
		return delta, ""
	case status.Status == constants.StatusFailed:
		return delta, descFailedToStart
	default:
		return delta, cond.Reason
	}
}

// Stopping returns the progress delta from current and an optional
// description for a snapshot taken while stopping.
func (a Accountant) Stopping(total int, current int, status *v1.PredictorStatus, instances int) (int, string) {
	if a.legacy(status) {
		delta := (total - instances) - current
		switch {
		case status.Status == constants.StatusStopped:
			return delta, descStopped
		case total == current:
			return delta, ""
		default:
			return delta, descStopping
		}
	}

	cond := status.Condition
	step := 0
	switch cond.Type {
	case constants.ConditionScheduled:
		// An unset status means scheduling is still pending.
		if cond.Status == nil {
			step = 1
		}
	case constants.ConditionStopped:
		if cond.Status == nil || *cond.Status {
			stopped := (total - stopConditionSteps) - instances
			step = stopConditionSteps + stopped
		}
	}
	delta := step - current
	switch {
	case cond.Type == constants.ConditionReady, status.Status == constants.StatusFailed:
		return delta, ""
	case status.Status == constants.StatusStopped:
		return delta, descStopped
	default:
		return delta, cond.Reason
	}
}

// startBudget is the number of steps of the start progress bar.
func startBudget(d *Deployment) int {
	if !d.ConditionReporting() {
		return d.minStartingInstances()
	}
	return (len(constants.StartSteps) - 1) + d.minStartingInstances()
}

// stopBudget is the number of steps of the stop progress bar.
func stopBudget(d *Deployment, available int) int {
	if !d.ConditionReporting() {
		return d.minStartingInstances()
	}
	return len(constants.StopSteps) + utils.MaxInt(d.RequestedInstances(), available)
}

// tracker accumulates progress deltas and forwards them to a ProgressFunc.
type tracker struct {
	operation   string
	n           int
	total       int
	description string
	notify      ProgressFunc
}

func newTracker(operation string, total int, description string, notify ProgressFunc) *tracker {
	t := &tracker{operation: operation, total: total, description: description, notify: notify}
	t.emit()
	return t
}

func (t *tracker) update(delta int, description string) {
	t.n += delta
	if description != "" {
		t.description = description
	}
	t.emit()
}

func (t *tracker) emit() {
	if t.notify == nil {
		return
	}
	t.notify(Progress{Operation: t.operation, N: t.n, Total: t.total, Description: t.description})
}

func (t *tracker) starting(d *Deployment) TickFunc {
	return func(status *v1.PredictorStatus, instances int) {
		a := Accountant{ConditionReporting: d.ConditionReporting()}
		t.update(a.Starting(t.n, status, instances))
	}
}

func (t *tracker) stopping(d *Deployment) TickFunc {
	return func(status *v1.PredictorStatus, instances int) {
		a := Accountant{ConditionReporting: d.ConditionReporting()}
		t.update(a.Stopping(t.total, t.n, status, instances))
	}
}
