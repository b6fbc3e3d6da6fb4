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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kserve/servingctl/pkg/client"
	"github.com/kserve/servingctl/pkg/logger"
	"github.com/kserve/servingctl/pkg/serving"
	"github.com/kserve/servingctl/pkg/storage"
	"github.com/kserve/servingctl/pkg/types"
)

type options struct {
	verbose         bool
	metricsTextfile string
	artifactsRoot   string
}

// session holds the clients of one command invocation.
type session struct {
	api      serving.ServingAPI
	ctrl     *serving.Controller
	registry *prometheus.Registry
	logger   *zap.SugaredLogger
	closers  []func() error
}

type connectFunc func(cmd *cobra.Command, opts *options) (*session, error)

func connect(cmd *cobra.Command, opts *options) (*session, error) {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return nil, err
	}
	cfg, err := types.LoadServingConfig()
	if err != nil {
		return nil, err
	}
	storageCfg, err := storage.LoadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{registry: prometheus.NewRegistry(), logger: log}
	api := client.New(cfg, log)
	s.api = api
	s.closers = append(s.closers, api.Close)

	var sink serving.EventSink
	if cfg.LogSinkURL != "" {
		dispatcher, err := logger.StartDispatcher(cfg.LogSinkURL, cfg.LogWorkers, log)
		if err != nil {
			return nil, err
		}
		sink = dispatcher
	}

	ctrl, err := serving.NewController(api, serving.Options{
		Logger:        log,
		Registerer:    s.registry,
		Channels:      serving.NewChannelFactory(cfg, log),
		Sink:          sink,
		Artifacts:     storage.NewRegistry(storageCfg, log),
		Progress:      progressPrinter(cmd.ErrOrStderr()),
		ArtifactsRoot: opts.artifactsRoot,
		ProjectName:   cfg.ProjectName,
	})
	if err != nil {
		if sink != nil {
			sink.Stop()
		}
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		zapLogger *zap.Logger
		err       error
	)
	if verbose {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}
	return zapLogger.Sugar(), nil
}

// close releases the controller and the transport, and writes the collected
// metrics to metricsTextfile when set.
func (s *session) close(metricsTextfile string) error {
	var result *multierror.Error
	if s.ctrl != nil {
		if err := s.ctrl.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(metricsTextfile, s.registry); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "failed to write metrics"))
		}
	}
	_ = s.logger.Sync()
	return result.ErrorOrNil()
}

func (s *session) deployment(ctx context.Context, name string) (*serving.Deployment, error) {
	p, err := s.api.GetDeploymentByName(ctx, name)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, errors.Wrapf(serving.ErrDeploymentNotFound, "deployment %s", name)
		}
		return nil, err
	}
	return serving.NewDeployment(p), nil
}

func progressPrinter(w io.Writer) serving.ProgressFunc {
	return func(p serving.Progress) {
		fmt.Fprintf(w, "%s [%d/%d] %s\n", p.Operation, p.N, p.Total, p.Description)
	}
}
