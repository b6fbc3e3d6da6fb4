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
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/storage"
)

const (
	operationCreate = "create"
	operationUpdate = "update"
	operationDelete = "delete"
)

var stoppedStatuses = sets.New(constants.StatusCreating, constants.StatusCreated, constants.StatusStopped)

// Options configures a Controller. Every field is optional.
type Options struct {
	// Clock drives status polling. Defaults to the real clock.
	Clock  clock.Clock
	Logger *zap.SugaredLogger
	// Registerer receives the controller metrics. Defaults to a private registry.
	Registerer prometheus.Registerer
	// Channels opens inference channels for binary protocol deployments.
	Channels ChannelFactory
	// Sink receives inference events of deployments with inference logging.
	Sink EventSink
	// Artifacts downloads artifacts stored under a storage URI.
	Artifacts storage.Provider
	// Progress receives progress updates of start and stop.
	Progress ProgressFunc
	// ArtifactsRoot is where artifacts are downloaded. Defaults to the
	// working directory.
	ArtifactsRoot string
	ProjectName   string
}

// Controller drives deployments through their lifecycle on the serving
// platform.
type Controller struct {
	api           ServingAPI
	clock         clock.Clock
	logger        *zap.SugaredLogger
	metrics       *Metrics
	poller        *Poller
	channels      ChannelFactory
	sink          EventSink
	artifacts     storage.Provider
	progress      ProgressFunc
	artifactsRoot string
	projectName   string

	mu   sync.Mutex
	open map[*Deployment]struct{}
}

// NewController creates a controller talking to api.
func NewController(api ServingAPI, opts Options) (*Controller, error) {
	if api == nil {
		return nil, errors.New("serving api is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	return &Controller{
		api:           api,
		clock:         opts.Clock,
		logger:        opts.Logger,
		metrics:       metrics,
		poller:        &Poller{Clock: opts.Clock, Metrics: metrics},
		channels:      opts.Channels,
		sink:          opts.Sink,
		artifacts:     opts.Artifacts,
		progress:      opts.Progress,
		artifactsRoot: opts.ArtifactsRoot,
		projectName:   opts.ProjectName,
		open:          map[*Deployment]struct{}{},
	}, nil
}

func (c *Controller) instrument(operation string, start time.Time, err *error) {
	c.metrics.observe(operation, c.clock.Since(start), *err)
}

// GetState fetches the current status of a saved deployment.
func (c *Controller) GetState(ctx context.Context, d *Deployment) (*v1.PredictorStatus, error) {
	if !d.IsSaved() {
		return nil, ErrDeploymentNotSaved
	}
	return c.refresh(ctx, d)
}

func (c *Controller) refresh(ctx context.Context, d *Deployment) (*v1.PredictorStatus, error) {
	status, err := c.api.GetStatus(ctx, d.id())
	if err != nil {
		if client.IsNotFound(err) {
			return nil, errors.Wrapf(ErrDeploymentNotFound, "deployment %s", d.Name)
		}
		return nil, err
	}
	d.observe(status)
	return status, nil
}

func (c *Controller) statusFunc(d *Deployment) StatusFunc {
	return func(ctx context.Context) (*v1.PredictorStatus, error) {
		return c.refresh(ctx, d)
	}
}

// Save creates the deployment if it has never been persisted and updates it
// otherwise.
func (c *Controller) Save(ctx context.Context, d *Deployment, awaitSeconds int) error {
	if !d.IsSaved() {
		return c.Create(ctx, d)
	}
	return c.Update(ctx, d, awaitSeconds)
}

// Create persists a new deployment. Creating a deployment whose name is taken
// by a deployment serving the same model version adopts the existing one.
func (c *Controller) Create(ctx context.Context, d *Deployment) (err error) {
	defer c.instrument(operationCreate, c.clock.Now(), &err)

	if err := prepare(d); err != nil {
		return err
	}
	created, err := c.api.PutDeployment(ctx, d.Predictor)
	if err != nil {
		if !client.IsDuplicatedEntry(err) {
			return err
		}
		existing, getErr := c.api.GetDeploymentByName(ctx, d.Name)
		if getErr != nil {
			return errors.Wrapf(getErr, "failed to get existing deployment %s", d.Name)
		}
		if existing.ModelName != d.ModelName || existing.ModelVersion != d.ModelVersion {
			return errors.Wrapf(err, "deployment %s already exists serving model %s version %d, choose a different name",
				d.Name, existing.ModelName, existing.ModelVersion)
		}
		c.logger.Infow("Deployment with the same name already exists, getting existing deployment",
			"deployment", d.Name, "id", existing.ID)
		created = existing
	} else {
		c.logger.Infow("Deployment created", "deployment", created.Name, "id", created.ID)
	}
	*d.Predictor = *created

	status, err := c.refresh(ctx, d)
	if err != nil {
		return err
	}
	if stoppedStatuses.Has(status.Status) {
		c.logger.Infow("Before making predictions, start the deployment", "deployment", d.Name)
	}
	return nil
}

// Update applies the deployment metadata. Changes to running deployments are
// awaited until the deployment runs again.
func (c *Controller) Update(ctx context.Context, d *Deployment, awaitSeconds int) (err error) {
	defer c.instrument(operationUpdate, c.clock.Now(), &err)

	if !d.IsSaved() {
		return nil
	}
	status, err := c.refresh(ctx, d)
	if err != nil {
		return err
	}
	switch status.Status {
	case constants.StatusStarting:
		return stateError(d, status, "Deployment is starting, please wait until it is running before applying changes")
	case constants.StatusRunning, constants.StatusIdle, constants.StatusFailed:
		if err := c.put(ctx, d); err != nil {
			return err
		}
		c.logger.Infow("Deployment updated, applying changes to running instances", "deployment", d.Name)
		status, err := c.poller.Poll(ctx, d, c.statusFunc(d), constants.StatusRunning, awaitSeconds, nil)
		if err != nil {
			return err
		}
		if status != nil && status.Status == constants.StatusRunning {
			c.logger.Infow("Running instances updated successfully", "deployment", d.Name)
		}
		return nil
	case constants.StatusUpdating:
		return stateError(d, status, "Deployment is updating, please wait until it is running before applying changes")
	case constants.StatusStopping:
		return stateError(d, status, "Deployment is stopping, please wait until it is stopped before applying changes")
	case constants.StatusCreating, constants.StatusCreated, constants.StatusStopped:
		if err := c.put(ctx, d); err != nil {
			return err
		}
		c.logger.Infow("Deployment updated", "deployment", d.Name)
		return nil
	}
	return errors.Errorf("unknown deployment status: %s", status.Status)
}

func (c *Controller) put(ctx context.Context, d *Deployment) error {
	if err := prepare(d); err != nil {
		return err
	}
	updated, err := c.api.PutDeployment(ctx, d.Predictor)
	if err != nil {
		return err
	}
	*d.Predictor = *updated
	return nil
}

// Delete removes the deployment. Unless force is set the deployment must be
// stopped. Deleting a deployment that no longer exists is a no-op.
func (c *Controller) Delete(ctx context.Context, d *Deployment, force bool) (err error) {
	defer c.instrument(operationDelete, c.clock.Now(), &err)

	if !d.IsSaved() {
		return nil
	}
	status, err := c.refresh(ctx, d)
	if errors.Is(err, ErrDeploymentNotFound) {
		c.logger.Infow("Deployment already deleted", "deployment", d.Name)
		return nil
	}
	if err != nil {
		return err
	}
	if !force && status.Status != constants.StatusStopped {
		return stateError(d, status, "Deployment not stopped, please stop it first")
	}
	c.releaseChannel(d)
	if err := c.api.DeleteDeployment(ctx, d.id()); err != nil && !client.IsNotFound(err) {
		return err
	}
	c.logger.Infow("Deployment deleted successfully", "deployment", d.Name)
	return nil
}

// Close releases the inference channels opened by the controller and stops
// the event sink.
func (c *Controller) Close() error {
	c.mu.Lock()
	deployments := make([]*Deployment, 0, len(c.open))
	for d := range c.open {
		deployments = append(deployments, d)
	}
	c.open = map[*Deployment]struct{}{}
	c.mu.Unlock()

	var result *multierror.Error
	for _, d := range deployments {
		if ch := d.takeChannel(); ch != nil {
			if err := ch.Close(); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "failed to close channel of %s", d.Name))
			}
		}
	}
	if c.sink != nil {
		c.sink.Stop()
	}
	return result.ErrorOrNil()
}

// ensureChannel returns the open inference channel of d, opening one if needed.
func (c *Controller) ensureChannel(d *Deployment) (InferenceChannel, error) {
	if ch := d.getChannel(); ch != nil {
		return ch, nil
	}
	if c.channels == nil {
		return nil, errors.Errorf("no inference channel configured for deployment %s", d.Name)
	}
	c.logger.Infow("Creating a gRPC channel", "deployment", d.Name)
	ch, err := c.channels(d.Predictor)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open inference channel for deployment %s", d.Name)
	}
	inUse, stored := d.setChannel(ch)
	if !stored {
		if err := ch.Close(); err != nil {
			c.logger.Warnw("Failed to close inference channel", "deployment", d.Name, "error", err)
		}
		return inUse, nil
	}
	c.mu.Lock()
	c.open[d] = struct{}{}
	c.mu.Unlock()
	return inUse, nil
}

func (c *Controller) releaseChannel(d *Deployment) {
	c.mu.Lock()
	delete(c.open, d)
	c.mu.Unlock()
	if ch := d.takeChannel(); ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Warnw("Failed to close inference channel", "deployment", d.Name, "error", err)
		}
	}
}

func (c *Controller) artifactsDir() (string, error) {
	if c.artifactsRoot != "" {
		return c.artifactsRoot, nil
	}
	return os.Getwd()
}

func prepare(d *Deployment) error {
	d.Default()
	if err := d.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func stateError(d *Deployment, status *v1.PredictorStatus, msg string) *LifecycleStateError {
	return &LifecycleStateError{Deployment: d.Name, Status: status.Status, Message: msg}
}
