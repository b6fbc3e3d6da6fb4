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
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

type AzureClient interface {
	NewListBlobsFlatPager(containerName string, options *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
	DownloadFile(ctx context.Context, containerName string, blobName string, file *os.File, options *azblob.DownloadFileOptions) (int64, error)
}

type AzureProvider struct {
	// NewClient builds a client for the blob service of a storage account.
	NewClient func(serviceUrl string) (AzureClient, error)
	Logger    *zap.SugaredLogger
}

var _ Provider = (*AzureProvider)(nil)

type azureUriParts struct {
	serviceUrl    string
	containerName string
	virtualDir    string
}

// parseAzureUri splits azure://<account>.blob.core.windows.net/<container>/<dir>.
func parseAzureUri(uri string) (azureUriParts, error) {
	if !strings.HasPrefix(uri, string(Azure)) {
		return azureUriParts{}, fmt.Errorf("invalid azure uri %q", uri)
	}
	tokens := strings.SplitN(strings.TrimPrefix(uri, string(Azure)), "/", 3)
	if len(tokens) < 3 || tokens[0] == "" || tokens[1] == "" || strings.Trim(tokens[2], "/") == "" {
		return azureUriParts{}, fmt.Errorf("invalid azure uri %q, expected %s<host>/<container>/<path>", uri, Azure)
	}
	return azureUriParts{
		serviceUrl:    "https://" + tokens[0],
		containerName: tokens[1],
		virtualDir:    strings.TrimSuffix(tokens[2], "/"),
	}, nil
}

func (a *AzureProvider) Download(ctx context.Context, destDir string, storageUri string) error {
	logger := loggerOrNop(a.Logger)
	parts, err := parseAzureUri(storageUri)
	if err != nil {
		return err
	}
	client, err := a.NewClient(parts.serviceUrl)
	if err != nil {
		return fmt.Errorf("unable to create azure client for %s: %w", parts.serviceUrl, err)
	}
	pager := client.NewListBlobsFlatPager(parts.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &parts.virtualDir,
	})

	found := false
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		if resp.Segment == nil {
			continue
		}
		for _, blob := range resp.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			found = true
			fileName, err := localPath(destDir, parts.virtualDir, *blob.Name)
			if err != nil {
				return err
			}
			logger.Infow("Downloading blob", "blob", *blob.Name, "file", fileName)
			if err := a.downloadBlob(ctx, client, parts.containerName, *blob.Name, fileName); err != nil {
				return err
			}
		}
	}
	if !found {
		return fmt.Errorf("no blobs found under %s", storageUri)
	}
	return nil
}

func (a *AzureProvider) downloadBlob(ctx context.Context, client AzureClient, containerName string, blobName string, fileName string) error {
	file, err := createNewFile(fileName)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := client.DownloadFile(ctx, containerName, blobName, file, nil); err != nil {
		return fmt.Errorf("failed to download blob %s: %w", blobName, err)
	}
	return nil
}

// azureClientFactory authenticates with the storage account key when set,
// anonymously when requested, and through the default azure credential chain
// otherwise.
func azureClientFactory(cfg *Config) func(serviceUrl string) (AzureClient, error) {
	return func(serviceUrl string) (AzureClient, error) {
		switch {
		case cfg.AzureAnonymous:
			return azblob.NewClientWithNoCredential(serviceUrl+"/", nil)
		case cfg.AzureStorageAccessKey != "":
			account := strings.SplitN(strings.TrimPrefix(serviceUrl, "https://"), ".", 2)[0]
			cred, err := azblob.NewSharedKeyCredential(account, cfg.AzureStorageAccessKey)
			if err != nil {
				return nil, err
			}
			return azblob.NewClientWithSharedKeyCredential(serviceUrl+"/", cred, nil)
		default:
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, err
			}
			return azblob.NewClient(serviceUrl+"/", cred, nil)
		}
	}
}
