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

package logger

type LogRequestType string

const (
	InferenceRequest  LogRequestType = "request"
	InferenceResponse LogRequestType = "response"
)

// LogRequest is one inference payload to publish.
type LogRequest struct {
	Body        []byte
	ContentType string
	ReqType     LogRequestType
	// ID correlates the request and response events of one prediction.
	ID         string
	Deployment string
	Project    string
	Component  string
}
