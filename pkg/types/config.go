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

package types

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/constants"
)

// ServingConfig holds everything needed to talk to the serving platform. It is
// created once and passed explicitly to the client, controller and channels.
type ServingConfig struct {
	Host               string        `envconfig:"SERVING_HOST" required:"true"`
	Port               int           `envconfig:"SERVING_PORT" default:"443"`
	Scheme             string        `envconfig:"SERVING_SCHEME" default:"https"`
	BasePath           string        `envconfig:"SERVING_BASE_PATH" default:"/hopsworks-api/api"`
	ProjectID          int           `envconfig:"SERVING_PROJECT_ID" required:"true"`
	ProjectName        string        `envconfig:"SERVING_PROJECT_NAME"`
	APIKey             string        `envconfig:"SERVING_API_KEY"`
	APIKeyFile         string        `envconfig:"SERVING_API_KEY_FILE"`
	InsecureSkipVerify bool          `envconfig:"SERVING_INSECURE_SKIP_VERIFY" default:"false"`
	RequestTimeout     time.Duration `envconfig:"SERVING_REQUEST_TIMEOUT" default:"60s"`

	// Inference ingress, used for direct REST requests and gRPC channels.
	InferenceURL string `envconfig:"SERVING_INFERENCE_URL"`
	GRPCAddress  string `envconfig:"SERVING_GRPC_ADDRESS"`
	GRPCInsecure bool   `envconfig:"SERVING_GRPC_INSECURE" default:"false"`
	Domain       string `envconfig:"SERVING_DOMAIN" default:"example.com"`

	// Client-side inference event sink.
	LogSinkURL string `envconfig:"SERVING_LOG_SINK_URL"`
	LogWorkers int    `envconfig:"SERVING_LOG_WORKERS" default:"2"`
}

// LoadServingConfig reads the configuration from the environment.
func LoadServingConfig() (*ServingConfig, error) {
	cfg := &ServingConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load serving configuration")
	}
	if cfg.ProjectName == "" {
		cfg.ProjectName = constants.DefaultProjectName
	}
	if cfg.APIKey == "" && cfg.APIKeyFile != "" {
		key, err := os.ReadFile(cfg.APIKeyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read api key file %s", cfg.APIKeyFile)
		}
		cfg.APIKey = strings.TrimSpace(string(key))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that envconfig cannot.
func (c *ServingConfig) Validate() error {
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q, expected http or https", c.Scheme)
	}
	if c.InferenceURL != "" {
		if _, err := url.ParseRequestURI(c.InferenceURL); err != nil {
			return errors.Wrapf(err, "invalid inference url %q", c.InferenceURL)
		}
	}
	if c.LogSinkURL != "" {
		if _, err := url.ParseRequestURI(c.LogSinkURL); err != nil {
			return errors.Wrapf(err, "invalid log sink url %q", c.LogSinkURL)
		}
	}
	if c.LogWorkers <= 0 {
		c.LogWorkers = 1
	}
	return nil
}

// BaseURL is the root of the serving platform REST API.
func (c *ServingConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d%s", c.Scheme, c.Host, c.Port, strings.TrimSuffix(c.BasePath, "/"))
}

// ProjectURL is the root of the project scoped endpoints.
func (c *ServingConfig) ProjectURL() string {
	return fmt.Sprintf("%s/project/%d", c.BaseURL(), c.ProjectID)
}
