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
	"testing"

	"github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
)

func TestStartingProgressIsMonotonic(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	d := savedDeployment()
	d.Resources.NumInstances = 2
	d.observe(conditioned(constants.StatusStopped, 0, constants.ConditionStopped, nil, ""))
	total := startBudget(d)
	g.Expect(total).To(gomega.Equal(6))

	snapshots := []struct {
		status    *v1.PredictorStatus
		instances int
	}{
		{conditioned(constants.StatusStopped, 0, constants.ConditionStopped, nil, ""), 0},
		{conditioned(constants.StatusStarting, 0, constants.ConditionScheduled, ptr.To(true), "Scheduling instances"), 0},
		{conditioned(constants.StatusStarting, 0, constants.ConditionInitialized, ptr.To(true), "Initializing instances"), 0},
		{conditioned(constants.StatusStarting, 1, constants.ConditionStarted, ptr.To(true), "Starting instances"), 1},
		{conditioned(constants.StatusStarting, 1, constants.ConditionReady, ptr.To(true), "1 of 2 instances ready"), 1},
		{conditioned(constants.StatusRunning, 2, constants.ConditionReady, ptr.To(true), "Deployment is ready"), 2},
	}

	a := Accountant{ConditionReporting: true}
	n := 0
	for _, s := range snapshots {
		delta, _ := a.Starting(n, s.status, s.instances)
		g.Expect(delta).To(gomega.BeNumerically(">=", 0))
		n += delta
		g.Expect(n).To(gomega.BeNumerically("<=", total))
		if s.status.Status == constants.StatusRunning {
			g.Expect(n).To(gomega.Equal(total))
		} else {
			g.Expect(n).To(gomega.BeNumerically("<", total))
		}
	}
}

func TestStartingProgress(t *testing.T) {
	scenarios := map[string]struct {
		reporting    bool
		current      int
		status       *v1.PredictorStatus
		instances    int
		expectedStep int
		expectedDesc string
	}{
		"LegacyFirstStep": {
			current:      0,
			status:       snapshot(constants.StatusStarting, 1),
			instances:    1,
			expectedStep: 1,
		},
		"LegacyStarting": {
			current:      1,
			status:       snapshot(constants.StatusStarting, 1),
			instances:    1,
			expectedStep: 0,
			expectedDesc: descStarting,
		},
		"LegacyReady": {
			current:      1,
			status:       snapshot(constants.StatusRunning, 2),
			instances:    2,
			expectedStep: 1,
			expectedDesc: descReady,
		},
		"LegacyWhenConditionMissing": {
			reporting:    true,
			current:      0,
			status:       snapshot(constants.StatusRunning, 1),
			instances:    1,
			expectedStep: 1,
			expectedDesc: descReady,
		},
		"ConditionIgnoredWithoutReporting": {
			current:      0,
			status:       conditioned(constants.StatusStarting, 0, constants.ConditionInitialized, nil, "Initializing"),
			instances:    0,
			expectedStep: 0,
		},
		"StoppedConditionHasNoDescription": {
			reporting:    true,
			current:      0,
			status:       conditioned(constants.StatusStopped, 0, constants.ConditionStopped, nil, "Stopped"),
			expectedStep: 0,
		},
		"ScheduledUsesReason": {
			reporting:    true,
			current:      0,
			status:       conditioned(constants.StatusStarting, 0, constants.ConditionScheduled, nil, "Scheduling"),
			expectedStep: 1,
			expectedDesc: "Scheduling",
		},
		"StartedScalesWithInstances": {
			reporting:    true,
			current:      2,
			status:       conditioned(constants.StatusStarting, 3, constants.ConditionStarted, ptr.To(true), "Started"),
			instances:    3,
			expectedStep: 4,
			expectedDesc: "Started",
		},
		"FailedOverridesReason": {
			reporting:    true,
			current:      2,
			status:       conditioned(constants.StatusFailed, 0, constants.ConditionInitialized, ptr.To(false), "image pull"),
			expectedStep: 0,
			expectedDesc: descFailedToStart,
		},
		"UnknownCondition": {
			reporting:    true,
			current:      3,
			status:       conditioned(constants.StatusStarting, 0, constants.ConditionType("PULLING"), nil, "Pulling"),
			expectedStep: 0,
			expectedDesc: "Pulling",
		},
	}

	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			a := Accountant{ConditionReporting: scenario.reporting}
			step, desc := a.Starting(scenario.current, scenario.status, scenario.instances)
			if step != scenario.expectedStep {
				t.Errorf("expected step %d, got %d", scenario.expectedStep, step)
			}
			if desc != scenario.expectedDesc {
				t.Errorf("expected description %q, got %q", scenario.expectedDesc, desc)
			}
		})
	}
}

func TestStoppingProgress(t *testing.T) {
	scenarios := map[string]struct {
		reporting    bool
		total        int
		current      int
		status       *v1.PredictorStatus
		instances    int
		expectedStep int
		expectedDesc string
	}{
		"LegacyStopping": {
			total:        2,
			current:      0,
			status:       snapshot(constants.StatusStopping, 1),
			instances:    1,
			expectedStep: 1,
			expectedDesc: descStopping,
		},
		"LegacyStopped": {
			total:        2,
			current:      1,
			status:       snapshot(constants.StatusStopped, 0),
			instances:    0,
			expectedStep: 1,
			expectedDesc: descStopped,
		},
		"LegacyCompleted": {
			total:        2,
			current:      2,
			status:       snapshot(constants.StatusStopping, 0),
			instances:    0,
			expectedStep: 0,
		},
		"ScheduledPending": {
			reporting:    true,
			total:        4,
			current:      0,
			status:       conditioned(constants.StatusStopping, 2, constants.ConditionScheduled, nil, "Stopping instances"),
			instances:    2,
			expectedStep: 1,
			expectedDesc: "Stopping instances",
		},
		"ScheduledReached": {
			reporting:    true,
			total:        4,
			current:      0,
			status:       conditioned(constants.StatusStopping, 2, constants.ConditionScheduled, ptr.To(true), "Scheduled"),
			instances:    2,
			expectedStep: 0,
			expectedDesc: "Scheduled",
		},
		"StoppedWithInstancesLeft": {
			reporting:    true,
			total:        4,
			current:      1,
			status:       conditioned(constants.StatusStopping, 1, constants.ConditionStopped, nil, "1 instance left"),
			instances:    1,
			expectedStep: 2,
			expectedDesc: "1 instance left",
		},
		"StoppedCompletely": {
			reporting:    true,
			total:        4,
			current:      3,
			status:       conditioned(constants.StatusStopped, 0, constants.ConditionStopped, ptr.To(true), "Stopped"),
			instances:    0,
			expectedStep: 1,
			expectedDesc: descStopped,
		},
		"StoppedConditionFalse": {
			reporting:    true,
			total:        4,
			current:      1,
			status:       conditioned(constants.StatusStopping, 1, constants.ConditionStopped, ptr.To(false), "Stopping"),
			instances:    1,
			expectedStep: -1,
			expectedDesc: "Stopping",
		},
		"ReadyHasNoDescription": {
			reporting:    true,
			total:        3,
			current:      0,
			status:       conditioned(constants.StatusRunning, 1, constants.ConditionReady, ptr.To(true), "Ready"),
			instances:    1,
			expectedStep: 0,
		},
		"FailedHasNoDescription": {
			reporting:    true,
			total:        3,
			current:      0,
			status:       conditioned(constants.StatusFailed, 0, constants.ConditionScheduled, nil, "Failed"),
			expectedStep: 1,
		},
	}

	for name, scenario := range scenarios {
		t.Run(name, func(t *testing.T) {
			a := Accountant{ConditionReporting: scenario.reporting}
			step, desc := a.Stopping(scenario.total, scenario.current, scenario.status, scenario.instances)
			if step != scenario.expectedStep {
				t.Errorf("expected step %d, got %d", scenario.expectedStep, step)
			}
			if desc != scenario.expectedDesc {
				t.Errorf("expected description %q, got %q", scenario.expectedDesc, desc)
			}
		})
	}
}

func TestBudgets(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	d := savedDeployment()
	d.Resources.NumInstances = 0
	g.Expect(startBudget(d)).To(gomega.Equal(1))
	g.Expect(stopBudget(d, 3)).To(gomega.Equal(1))

	d.Transformer = &v1.Transformer{ScriptFile: "transformer.py", Resources: v1.Resources{NumInstances: 1}}
	g.Expect(startBudget(d)).To(gomega.Equal(2))

	d.observe(conditioned(constants.StatusStopped, 0, constants.ConditionStopped, nil, ""))
	g.Expect(startBudget(d)).To(gomega.Equal(len(constants.StartSteps) - 1 + 2))
	g.Expect(stopBudget(d, 0)).To(gomega.Equal(len(constants.StopSteps) + 1))
	g.Expect(stopBudget(d, 3)).To(gomega.Equal(len(constants.StopSteps) + 3))
}

func TestConditionReportingIsSticky(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	d := savedDeployment()
	d.observe(snapshot(constants.StatusStopped, 0))
	g.Expect(d.ConditionReporting()).To(gomega.BeFalse())
	d.observe(conditioned(constants.StatusStarting, 0, constants.ConditionScheduled, nil, ""))
	g.Expect(d.ConditionReporting()).To(gomega.BeTrue())
	d.observe(snapshot(constants.StatusRunning, 1))
	g.Expect(d.ConditionReporting()).To(gomega.BeTrue())
}

func TestTrackerKeepsLastDescription(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	var updates []Progress
	tr := newTracker(operationStart, 3, descCreating, func(p Progress) { updates = append(updates, p) })
	tr.update(1, "Scheduling")
	tr.update(1, "")

	g.Expect(updates).To(gomega.Equal([]Progress{
		{Operation: operationStart, N: 0, Total: 3, Description: descCreating},
		{Operation: operationStart, N: 1, Total: 3, Description: "Scheduling"},
		{Operation: operationStart, N: 2, Total: 3, Description: "Scheduling"},
	}))
}
