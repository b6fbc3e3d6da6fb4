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
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/storage"
)

// DownloadArtifact downloads and extracts the model artifact of the deployment
// into a new directory under the artifacts root, and returns the directory of
// the artifact version.
func (c *Controller) DownloadArtifact(ctx context.Context, d *Deployment) (string, error) {
	if !d.IsSaved() {
		return "", ErrDeploymentNotSaved
	}
	if d.ArtifactVersion == "" {
		return "", errors.Errorf("deployment %s has no model artifact, download the model files instead", d.Name)
	}
	root, err := c.artifactsDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, uuid.NewString(), d.ModelName, strconv.Itoa(d.ModelVersion), constants.ArtifactsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create artifacts directory %s", dir)
	}
	zipPath := filepath.Join(dir, d.ArtifactVersion+".zip")
	defer os.Remove(zipPath)

	if err := c.fetchArtifact(ctx, d, dir, zipPath); err != nil {
		return "", err
	}
	if err := storage.ExtractZip(zipPath, dir); err != nil {
		return "", err
	}
	c.logger.Infow("Artifact downloaded", "deployment", d.Name, "path", dir)
	return filepath.Join(dir, d.ArtifactVersion), nil
}

func (c *Controller) fetchArtifact(ctx context.Context, d *Deployment, dir string, zipPath string) error {
	if c.artifacts != nil && storage.IsStorageURI(d.ModelPath) {
		return c.artifacts.Download(ctx, dir, d.ArtifactPath())
	}
	file, err := os.Create(zipPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", zipPath)
	}
	defer file.Close()
	if _, err := c.api.DownloadDataset(ctx, d.ArtifactPath(), file); err != nil {
		return errors.Wrapf(err, "failed to download artifact %s", d.ArtifactPath())
	}
	return nil
}
