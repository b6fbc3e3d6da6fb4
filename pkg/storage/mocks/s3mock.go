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

package mocks

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

const ObjectContents = "Artifact Contents"

// MockS3Client lists Keys under the requested prefix.
type MockS3Client struct {
	s3iface.S3API
	Keys []string
}

func (m *MockS3Client) ListObjectsWithContext(_ aws.Context, input *s3.ListObjectsInput, _ ...request.Option) (*s3.ListObjectsOutput, error) {
	output := &s3.ListObjectsOutput{}
	for _, key := range m.Keys {
		if strings.HasPrefix(key, aws.StringValue(input.Prefix)) {
			output.Contents = append(output.Contents, &s3.Object{Key: aws.String(key)})
		}
	}
	return output, nil
}

// MockS3Downloader writes ObjectContents to every object and records the keys.
type MockS3Downloader struct {
	Downloaded []string
}

func (m *MockS3Downloader) DownloadWithIterator(_ aws.Context, iter s3manager.BatchDownloadIterator, _ ...func(*s3manager.Downloader)) error {
	for iter.Next() {
		object := iter.DownloadObject()
		if _, err := object.Writer.WriteAt([]byte(ObjectContents), 0); err != nil {
			return err
		}
		m.Downloaded = append(m.Downloaded, aws.StringValue(object.Object.Key))
		if object.After != nil {
			if err := object.After(); err != nil {
				return err
			}
		}
	}
	return iter.Err()
}

type MockS3FailDownloader struct{}

func (m *MockS3FailDownloader) DownloadWithIterator(aws.Context, s3manager.BatchDownloadIterator, ...func(*s3manager.Downloader)) error {
	var errs []s3manager.Error
	errs = append(errs, s3manager.Error{
		OrigErr: errors.New("failed to download"),
		Bucket:  aws.String("modelRepo"),
		Key:     aws.String("model1/model.pt"),
	})
	return s3manager.NewBatchError("BatchedDownloadIncomplete", "some objects have failed to download.", errs)
}

var (
	_ s3manageriface.DownloadWithIterator = &MockS3Downloader{}
	_ s3manageriface.DownloadWithIterator = &MockS3FailDownloader{}
)
