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
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/serving"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type app struct {
	connect connectFunc
	opts    options
}

func newRootCommand(connect connectFunc) *cobra.Command {
	a := &app{connect: connect}
	root := &cobra.Command{
		Use:          constants.ServingCtlName,
		Short:        "servingctl manages model deployments on the serving platform",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable development logging")
	root.PersistentFlags().StringVar(&a.opts.metricsTextfile, "metrics-textfile", "",
		"Write the lifecycle metrics of the invocation to this file in the Prometheus text format")

	root.AddCommand(
		a.createCommand(),
		a.updateCommand(),
		a.startCommand(),
		a.stopCommand(),
		a.deleteCommand(),
		a.statusCommand(),
		a.logsCommand(),
		a.predictCommand(),
		a.downloadCommand(),
	)
	return root
}

// run connects, runs fn and releases the session.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := a.connect(cmd, &a.opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := fn(ctx, s)
	closeErr := s.close(a.opts.metricsTextfile)
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func (a *app) createCommand() *cobra.Command {
	var (
		file  string
		start bool
		await int
	)
	cmd := &cobra.Command{
		Use:   "create -f FILE",
		Short: "Create a deployment from a YAML or JSON manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readManifest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d := serving.NewDeployment(p)
				if err := s.ctrl.Create(ctx, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deployment %s created\n", d.Predictor)
				if !start {
					return nil
				}
				return s.ctrl.Start(ctx, d, await)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "filename", "f", "", "Deployment manifest, - for stdin")
	cmd.Flags().BoolVar(&start, "start", false, "Start the deployment once created")
	awaitFlag(cmd.Flags(), &await, "Seconds to wait for the deployment to run")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var (
		file  string
		await int
	)
	cmd := &cobra.Command{
		Use:   "update -f FILE",
		Short: "Apply a manifest to an existing deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readManifest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, s *session) error {
				existing, err := s.deployment(ctx, p.Name)
				if err != nil {
					return err
				}
				p.ID = existing.ID
				d := serving.NewDeployment(p)
				if err := s.ctrl.Update(ctx, d, await); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deployment %s updated\n", d.Predictor)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "filename", "f", "", "Deployment manifest, - for stdin")
	awaitFlag(cmd.Flags(), &await, "Seconds to wait for running deployments to apply the changes")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

func (a *app) startCommand() *cobra.Command {
	var await int
	cmd := &cobra.Command{
		Use:   "start NAME",
		Short: "Start a deployment and wait until it runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				return s.ctrl.Start(ctx, d, await)
			})
		},
	}
	awaitFlag(cmd.Flags(), &await, "Seconds to wait for the deployment to run, 0 to return immediately")
	return cmd
}

func (a *app) stopCommand() *cobra.Command {
	var await int
	cmd := &cobra.Command{
		Use:   "stop NAME",
		Short: "Stop a deployment and wait until it stops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				return s.ctrl.Stop(ctx, d, await)
			})
		},
	}
	awaitFlag(cmd.Flags(), &await, "Seconds to wait for the deployment to stop, 0 to return immediately")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stopped deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if errors.Is(err, serving.ErrDeploymentNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				return s.ctrl.Delete(ctx, d, force)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Delete the deployment even if it is not stopped")
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status NAME",
		Short: "Print the current status of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				status, err := s.ctrl.GetState(ctx, d)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), status)
			})
		},
	}
}

func (a *app) logsCommand() *cobra.Command {
	var (
		component string
		tail      int
	)
	cmd := &cobra.Command{
		Use:   "logs NAME",
		Short: "Print the server logs of a running deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				logs, err := s.ctrl.GetLogs(ctx, d, constants.Component(component), tail)
				if err != nil {
					return err
				}
				for _, l := range logs {
					fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n%s\n", l.InstanceName, l.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&component, "component", string(constants.PredictorComponent), "Component, predictor or transformer")
	cmd.Flags().IntVar(&tail, "tail", 10, "Number of lines per instance")
	return cmd
}

func (a *app) predictCommand() *cobra.Command {
	var in predictInput
	cmd := &cobra.Command{
		Use:   "predict NAME",
		Short: "Send an inference request to a running deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				data, inputs, err := in.build(d.APIProtocol)
				if err != nil {
					return err
				}
				prediction, err := s.ctrl.Predict(ctx, d, data, inputs)
				if err != nil {
					return err
				}
				body, err := prediction.Marshal()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.data, "data", "", "Raw JSON payload of the request")
	cmd.Flags().StringVar(&in.inputs, "inputs", "", "JSON inputs wrapped into a request")
	cmd.Flags().StringVar(&in.csvFile, "inputs-csv", "", "CSV file whose rows are sent as instances")
	cmd.MarkFlagsMutuallyExclusive("data", "inputs", "inputs-csv")
	return cmd
}

func (a *app) downloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download NAME",
		Short: "Download and extract the model artifact of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, s *session) error {
				d, err := s.deployment(ctx, args[0])
				if err != nil {
					return err
				}
				path, err := s.ctrl.DownloadArtifact(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&a.opts.artifactsRoot, "dest", "", "Directory to download into, defaults to the working directory")
	return cmd
}

func awaitFlag(fs *pflag.FlagSet, await *int, usage string) {
	fs.IntVar(await, "await", constants.DefaultAwaitSeconds, usage)
}

// readManifest reads a deployment manifest in YAML or JSON. A path of -
// reads stdin.
func readManifest(path string, stdin io.Reader) (*v1.Predictor, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
	}
	return v1.Decode(doc)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
