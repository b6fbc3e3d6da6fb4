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

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	v1 "github.com/kserve/servingctl/pkg/apis/serving/v1"
	"github.com/kserve/servingctl/pkg/constants"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DeploymentLog is the log tail of one instance of a deployment component.
type DeploymentLog struct {
	InstanceName string `json:"instanceName"`
	Content      string `json:"content"`
}

func (c *Client) servingURL(segments ...string) string {
	u := c.cfg.ProjectURL() + "/serving"
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// PutDeployment creates or updates a deployment and returns the persisted state.
func (c *Client) PutDeployment(ctx context.Context, p *v1.Predictor) (*v1.Predictor, error) {
	body, err := v1.Encode(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, request{method: http.MethodPut, url: c.servingURL(), body: body})
	if err != nil {
		return nil, err
	}
	return v1.Decode(resp)
}

// GetDeployment returns the deployment with the given id.
func (c *Client) GetDeployment(ctx context.Context, id int) (*v1.Predictor, error) {
	resp, err := c.doWithRetry(ctx, request{method: http.MethodGet, url: c.servingURL(strconv.Itoa(id))})
	if err != nil {
		return nil, err
	}
	return v1.Decode(resp)
}

// GetDeploymentByName returns the deployment with the given name.
func (c *Client) GetDeploymentByName(ctx context.Context, name string) (*v1.Predictor, error) {
	resp, err := c.doWithRetry(ctx, request{
		method: http.MethodGet,
		url:    c.servingURL(),
		query:  url.Values{"name": []string{name}},
	})
	if err != nil {
		return nil, err
	}
	predictors, err := v1.DecodeList(resp)
	if err != nil {
		return nil, err
	}
	for _, p := range predictors {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, &RestAPIError{
		URL:        c.servingURL(),
		StatusCode: http.StatusNotFound,
		Reason:     http.StatusText(http.StatusNotFound),
		ErrorCode:  constants.ErrorCodeServingNotFound,
		ErrorMsg:   fmt.Sprintf("deployment %s not found", name),
	}
}

// ListDeployments returns all deployments of the project.
func (c *Client) ListDeployments(ctx context.Context) ([]*v1.Predictor, error) {
	resp, err := c.doWithRetry(ctx, request{method: http.MethodGet, url: c.servingURL()})
	if err != nil {
		return nil, err
	}
	return v1.DecodeList(resp)
}

// GetStatus fetches a status snapshot of the deployment.
func (c *Client) GetStatus(ctx context.Context, id int) (*v1.PredictorStatus, error) {
	resp, err := c.doWithRetry(ctx, request{method: http.MethodGet, url: c.servingURL(strconv.Itoa(id))})
	if err != nil {
		return nil, err
	}
	return v1.DecodeStatus(resp)
}

// PostAction applies a lifecycle action to the deployment.
func (c *Client) PostAction(ctx context.Context, id int, action constants.Action) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		url:    c.servingURL(strconv.Itoa(id)),
		query:  url.Values{"action": []string{string(action)}},
	})
	return err
}

// DeleteDeployment deletes the deployment.
func (c *Client) DeleteDeployment(ctx context.Context, id int) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, url: c.servingURL(strconv.Itoa(id))})
	return err
}

// GetLogs returns the last tail lines of every instance of a component.
func (c *Client) GetLogs(ctx context.Context, id int, component constants.Component, tail int) ([]DeploymentLog, error) {
	resp, err := c.doWithRetry(ctx, request{
		method: http.MethodGet,
		url:    c.servingURL(strconv.Itoa(id), "logs"),
		query: url.Values{
			"component": []string{component.String()},
			"tail":      []string{strconv.Itoa(tail)},
		},
	})
	if err != nil {
		return nil, err
	}
	logs := []DeploymentLog{}
	if len(resp) == 0 {
		return logs, nil
	}
	if err := json.Unmarshal(resp, &logs); err != nil {
		return nil, errors.Wrap(err, "failed to decode deployment logs")
	}
	return logs, nil
}

// Predict sends a REST inference request. Deployments served by KServe are
// reached directly through the ingress when an inference url is configured,
// otherwise the request goes through the platform.
func (c *Client) Predict(ctx context.Context, p *v1.Predictor, body []byte) ([]byte, error) {
	r := request{method: http.MethodPost, body: body}
	if p.ServingTool == constants.ServingToolKServe && c.cfg.InferenceURL != "" {
		r.url = strings.TrimSuffix(c.cfg.InferenceURL, "/") + constants.PredictPrefix(p.Name)
		r.headers = map[string]string{
			"Host": constants.InferenceHostHeader(p.Name, c.cfg.ProjectName, c.cfg.Domain),
		}
	} else {
		r.url = fmt.Sprintf("%s/inference/models/%s:predict", c.cfg.ProjectURL(), url.PathEscape(p.Name))
	}
	return c.do(ctx, r)
}

// DownloadDataset streams a file of the project datasets into w.
func (c *Client) DownloadDataset(ctx context.Context, path string, w io.Writer) (int64, error) {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	resp, err := c.open(ctx, request{
		method:  http.MethodGet,
		url:     c.cfg.ProjectURL() + "/dataset/download/with_auth/" + strings.Join(segments, "/"),
		query:   url.Values{"type": []string{"DATASET"}},
		headers: map[string]string{"Accept": "application/octet-stream"},
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.Wrapf(err, "failed to download %s", path)
	}
	return n, nil
}
