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
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kserve/servingctl/pkg/utils"
)

// Registry dispatches downloads to the provider matching the uri protocol.
type Registry struct {
	cfg    *Config
	logger *zap.SugaredLogger

	mu        sync.Mutex
	providers map[Protocol]Provider
}

var _ Provider = (*Registry)(nil)

func NewRegistry(cfg *Config, logger *zap.SugaredLogger) *Registry {
	if cfg == nil {
		cfg = &Config{S3UseVirtualBucket: true}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{cfg: cfg, logger: logger, providers: map[Protocol]Provider{}}
}

// Register overrides the provider used for protocol.
func (r *Registry) Register(protocol Protocol, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[protocol] = provider
}

// IsStorageURI reports whether uri is handled by one of the providers.
func IsStorageURI(uri string) bool {
	return utils.IsPrefixSupported(uri, GetAllProtocol())
}

func (r *Registry) Download(ctx context.Context, destDir string, storageUri string) error {
	protocol, ok := ParseProtocol(storageUri)
	if !ok {
		return fmt.Errorf("unsupported storage uri %q, supported protocols are %v", storageUri, GetAllProtocol())
	}
	r.mu.Lock()
	provider, err := GetProvider(ctx, r.cfg, r.providers, protocol, r.logger)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.logger.Infow("Downloading artifact", "storageUri", storageUri, "destDir", destDir)
	return provider.Download(ctx, destDir, storageUri)
}
