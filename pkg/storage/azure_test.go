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
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kserve/servingctl/pkg/storage/mocks"
)

var _ = Describe("parseAzureUri", func() {
	It("should parse valid Azure URI", func() {
		scenarios := []struct {
			uri   string
			parts azureUriParts
		}{
			{
				uri: "azure://myStorageAccount.blob.core.windows.net/myContainer/myVirtualDir",
				parts: azureUriParts{
					serviceUrl:    "https://myStorageAccount.blob.core.windows.net",
					containerName: "myContainer",
					virtualDir:    "myVirtualDir",
				},
			},
			{
				uri: "azure://myStorageAccount.blob.core.windows.net/myContainer/this/is/virtualDir/",
				parts: azureUriParts{
					serviceUrl:    "https://myStorageAccount.blob.core.windows.net",
					containerName: "myContainer",
					virtualDir:    "this/is/virtualDir",
				},
			},
		}

		for _, scenario := range scenarios {
			parts, err := parseAzureUri(scenario.uri)
			Expect(err).To(BeNil())
			Expect(parts).To(Equal(scenario.parts))
		}
	})

	It("should return an error for invalid Azure URI", func() {
		scenarios := []string{
			"invalid-uri",
			"azure://myStorageAccount.blob.core.windows.net",
			"azure://myStorageAccount.blob.core.windows.net/myContainer",
			"azure://myStorageAccount.blob.core.windows.net/myContainer/",
		}

		for _, uri := range scenarios {
			_, err := parseAzureUri(uri)
			Expect(err).To(HaveOccurred())
		}
	})
})

var _ = Describe("AzureProvider", func() {
	var (
		destDir    string
		serviceUrl string
		provider   *AzureProvider
	)

	BeforeEach(func() {
		destDir = GinkgoT().TempDir()
		client := &mocks.MockAzureClient{
			Container: "models",
			Blobs: map[string][]byte{
				"mnist/1/Artifacts/3.zip": []byte("zip"),
				"mnist/2/Artifacts/1.zip": []byte("other"),
			},
		}
		provider = &AzureProvider{
			NewClient: func(url string) (AzureClient, error) {
				serviceUrl = url
				return client, nil
			},
		}
	})

	It("downloads the blobs under the virtual directory", func() {
		err := provider.Download(context.Background(), destDir, "azure://account.blob.core.windows.net/models/mnist/1/Artifacts")
		Expect(err).NotTo(HaveOccurred())
		Expect(serviceUrl).To(Equal("https://account.blob.core.windows.net"))

		contents, err := os.ReadFile(filepath.Join(destDir, "3.zip"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(contents)).To(Equal("zip"))
		Expect(filepath.Join(destDir, "1.zip")).NotTo(BeAnExistingFile())
	})

	It("fails when nothing matches", func() {
		err := provider.Download(context.Background(), destDir, "azure://account.blob.core.windows.net/models/unknown")
		Expect(err).To(MatchError(ContainSubstring("no blobs found")))
	})

	It("surfaces listing errors", func() {
		err := provider.Download(context.Background(), destDir, "azure://account.blob.core.windows.net/missing/dir")
		Expect(err).To(MatchError(ContainSubstring("container \"missing\" not found")))
	})
})
