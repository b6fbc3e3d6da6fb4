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
	"sync"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
)

// Deployment is a client-side handle on a remote deployment. It owns the
// optional inference channel opened once the deployment runs.
type Deployment struct {
	*v1.Predictor

	mu                 sync.Mutex
	conditionReporting bool
	channel            InferenceChannel
}

// NewDeployment wraps deployment metadata in a handle.
func NewDeployment(p *v1.Predictor) *Deployment {
	return &Deployment{Predictor: p}
}

// ConditionReporting reports whether the serving platform has ever reported a
// structured condition for this deployment. Once true it stays true.
func (d *Deployment) ConditionReporting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conditionReporting
}

// HasChannel reports whether an inference channel is open.
func (d *Deployment) HasChannel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel != nil
}

func (d *Deployment) observe(status *v1.PredictorStatus) {
	if status == nil || !status.HasCondition() {
		return
	}
	d.mu.Lock()
	d.conditionReporting = true
	d.mu.Unlock()
}

func (d *Deployment) getChannel() InferenceChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channel
}

// setChannel stores ch unless a channel is already open, and returns the
// channel in use.
func (d *Deployment) setChannel(ch InferenceChannel) (InferenceChannel, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.channel != nil {
		return d.channel, false
	}
	d.channel = ch
	return ch, true
}

func (d *Deployment) takeChannel() InferenceChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := d.channel
	d.channel = nil
	return ch
}

func (d *Deployment) id() int {
	if d.ID == nil {
		return 0
	}
	return *d.ID
}

// minStartingInstances is the number of instances counted while starting: at
// least one per component.
func (d *Deployment) minStartingInstances() int {
	minInstances := 1
	if d.HasTransformer() {
		minInstances++
	}
	if requested := d.RequestedInstances(); requested > minInstances {
		return requested
	}
	return minInstances
}
