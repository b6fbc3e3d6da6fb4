/*
Copyright 2021 The KServe Authors.

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
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	DEFAULT_MAX_DECOMPRESSION_SIZE = 1024 * 1024 * 1024 // 1 GB
)

// ExtractZip extracts the archive at zipPath into dest.
func ExtractZip(zipPath string, dest string) error {
	zipReader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("unable to open archive %s: %w", zipPath, err)
	}
	defer zipReader.Close()
	return extractZipFiles(&zipReader.Reader, dest)
}

func archivePath(dest string, name string) (string, error) {
	fileFullPath := filepath.Join(dest, name) // #nosec G305
	if !strings.HasPrefix(fileFullPath, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: illegal file path", fileFullPath)
	}
	return fileFullPath, nil
}

// copyBounded copies at most DEFAULT_MAX_DECOMPRESSION_SIZE bytes.
func copyBounded(dst io.Writer, src io.Reader, name string) error {
	n, err := io.CopyN(dst, src, DEFAULT_MAX_DECOMPRESSION_SIZE) // gosec G110
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to copy contents to %s: %w", name, err)
	}
	if n == DEFAULT_MAX_DECOMPRESSION_SIZE {
		return fmt.Errorf("%s exceeds the maximum decompression size of %d bytes", name, DEFAULT_MAX_DECOMPRESSION_SIZE)
	}
	return nil
}

func extractZipFiles(zipReader *zip.Reader, dest string) error {
	for _, zipFile := range zipReader.File {
		fileFullPath, err := archivePath(dest, zipFile.Name)
		if err != nil {
			return err
		}

		if zipFile.Mode().IsDir() {
			if err = os.MkdirAll(fileFullPath, 0o755); err != nil {
				return fmt.Errorf("unable to create new directory %s", fileFullPath)
			}
			continue
		}

		file, err := createNewFile(fileFullPath)
		if err != nil {
			return err
		}
		rc, err := zipFile.Open()
		if err != nil {
			file.Close()
			return fmt.Errorf("unable to open file: %w", err)
		}

		err = copyBounded(file, rc, zipFile.Name)
		if closeErr := file.Close(); closeErr != nil {
			return closeErr
		}
		if closeErr := rc.Close(); closeErr != nil {
			return closeErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarFiles(reader io.Reader, dest string) error {
	gzr, err := gzip.NewReader(reader)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("unable to access next tar file: %w", err)
		}

		fileFullPath, err := archivePath(dest, header.Name)
		if err != nil {
			return err
		}
		if header.Typeflag == tar.TypeDir {
			if err = os.MkdirAll(fileFullPath, 0o755); err != nil {
				return fmt.Errorf("unable to create new directory %s", fileFullPath)
			}
			continue
		}

		newFile, err := createNewFile(fileFullPath)
		if err != nil {
			return err
		}
		err = copyBounded(newFile, tr, header.Name)
		if closeErr := newFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
