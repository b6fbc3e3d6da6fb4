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

package storage

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config carries the credentials and endpoints of the object stores.
type Config struct {
	AWSRegion              string `envconfig:"AWS_DEFAULT_REGION"`
	AWSEndpointURL         string `envconfig:"AWS_ENDPOINT_URL"`
	AWSAnonymousCredential bool   `envconfig:"AWS_ANONYMOUS_CREDENTIAL" default:"false"`
	S3UseVirtualBucket     bool   `envconfig:"S3_USER_VIRTUAL_BUCKET" default:"true"`
	S3UseAccelerate        bool   `envconfig:"S3_USE_ACCELERATE" default:"false"`

	GCSCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`

	AzureStorageAccessKey string `envconfig:"AZURE_STORAGE_ACCESS_KEY"`
	AzureAnonymous        bool   `envconfig:"AZURE_ANONYMOUS" default:"false"`
}

// LoadConfig reads the storage configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load storage configuration")
	}
	return cfg, nil
}
