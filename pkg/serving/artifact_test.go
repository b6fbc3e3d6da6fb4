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
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kserve/servingctl/pkg/storage"
)

func artifactZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type zipProvider struct {
	archive []byte
	uris    []string
}

var _ storage.Provider = (*zipProvider)(nil)

func (p *zipProvider) Download(_ context.Context, destDir string, storageUri string) error {
	p.uris = append(p.uris, storageUri)
	return os.WriteFile(filepath.Join(destDir, filepath.Base(storageUri)), p.archive, 0o644)
}

func TestDownloadArtifactFromDatasets(t *testing.T) {
	api := newFakeAPI()
	api.dataset = artifactZip(t, map[string]string{
		"CREATE/predictor.py": "print('hello')",
		"CREATE/model.pb":     "weights",
	})
	env := newTestEnv(t, api)
	d := savedDeployment()

	path, err := env.ctrl.DownloadArtifact(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, env.ctrl.artifactsRoot))
	assert.True(t, strings.HasSuffix(path, filepath.Join("mnist", "1", "Artifacts", "CREATE")))
	content, err := os.ReadFile(filepath.Join(path, "model.pb"))
	require.NoError(t, err)
	assert.Equal(t, "weights", string(content))
	assert.NoFileExists(t, path+".zip")
	assert.Equal(t, []string{"/Projects/demo/Models/mnist/1/Artifacts/CREATE.zip"}, api.datasetPaths)
}

func TestDownloadArtifactFromStorage(t *testing.T) {
	api := newFakeAPI()
	env := newTestEnv(t, api)
	provider := &zipProvider{archive: artifactZip(t, map[string]string{"CREATE/model.pb": "weights"})}
	env.ctrl.artifacts = provider
	d := savedDeployment()
	d.ModelPath = "s3://models/mnist"

	path, err := env.ctrl.DownloadArtifact(context.Background(), d)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(path, "model.pb"))
	assert.NoFileExists(t, path+".zip")
	assert.Equal(t, []string{"s3://models/mnist/1/Artifacts/CREATE.zip"}, provider.uris)
	assert.Empty(t, api.datasetPaths)
}

func TestDownloadArtifactErrors(t *testing.T) {
	env := newTestEnv(t, newFakeAPI())

	_, err := env.ctrl.DownloadArtifact(context.Background(), NewDeployment(newPredictor()))
	assert.ErrorIs(t, err, ErrDeploymentNotSaved)

	d := savedDeployment()
	d.ArtifactVersion = ""
	_, err = env.ctrl.DownloadArtifact(context.Background(), d)
	assert.ErrorContains(t, err, "has no model artifact")

	env.api.dataset = []byte("not a zip")
	path, err := env.ctrl.DownloadArtifact(context.Background(), savedDeployment())
	assert.Error(t, err)
	assert.Empty(t, path)
	matches, err := filepath.Glob(filepath.Join(env.ctrl.artifactsRoot, "*", "mnist", "1", "Artifacts", "*.zip"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
