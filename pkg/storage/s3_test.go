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
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kserve/servingctl/pkg/storage/mocks"
)

var _ = Describe("S3Provider", func() {
	var (
		destDir string
		client  *mocks.MockS3Client
	)

	BeforeEach(func() {
		destDir = GinkgoT().TempDir()
		client = &mocks.MockS3Client{Keys: []string{
			"Models/mnist/1/Artifacts/",
			"Models/mnist/1/Artifacts/2.zip",
			"Models/mnist/1/model.pkl",
		}}
	})

	It("downloads a single object under its base name", func() {
		downloader := &mocks.MockS3Downloader{}
		provider := &S3Provider{Client: client, Downloader: downloader}

		err := provider.Download(context.Background(), destDir, "s3://bucket/Models/mnist/1/Artifacts/2.zip")
		Expect(err).NotTo(HaveOccurred())
		Expect(downloader.Downloaded).To(Equal([]string{"Models/mnist/1/Artifacts/2.zip"}))

		contents, err := os.ReadFile(filepath.Join(destDir, "2.zip"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(contents)).To(Equal(mocks.ObjectContents))
	})

	It("keeps the layout below the prefix and skips directory markers", func() {
		downloader := &mocks.MockS3Downloader{}
		provider := &S3Provider{Client: client, Downloader: downloader}

		err := provider.Download(context.Background(), destDir, "s3://bucket/Models/mnist/1")
		Expect(err).NotTo(HaveOccurred())
		Expect(downloader.Downloaded).To(HaveLen(2))
		Expect(filepath.Join(destDir, "Artifacts", "2.zip")).To(BeAnExistingFile())
		Expect(filepath.Join(destDir, "model.pkl")).To(BeAnExistingFile())
	})

	It("fails when the prefix is empty", func() {
		provider := &S3Provider{Client: client, Downloader: &mocks.MockS3Downloader{}}
		err := provider.Download(context.Background(), destDir, "s3://bucket/Models/unknown")
		Expect(err).To(MatchError(ContainSubstring("no objects found")))
	})

	It("wraps batch download errors", func() {
		provider := &S3Provider{Client: client, Downloader: &mocks.MockS3FailDownloader{}}
		err := provider.Download(context.Background(), destDir, "s3://bucket/Models/mnist/1/model.pkl")
		Expect(err).To(MatchError(ContainSubstring("unable to get download objects")))
	})
})
