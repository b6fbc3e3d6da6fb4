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
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/kserve/servingctl/pkg/constants"
)

// RestAPIError is returned for every non-2xx response of the serving platform.
//
// Error bodies look like
//
//	{"errorCode": 240011, "errorMsg": "An entry with the same name already exists", "usrMsg": "..."}
type RestAPIError struct {
	URL        string
	StatusCode int
	Reason     string
	ErrorCode  int
	ErrorMsg   string
	UserMsg    string
}

func newRestAPIError(url string, statusCode int, body []byte) *RestAPIError {
	e := &RestAPIError{
		URL:        url,
		StatusCode: statusCode,
		Reason:     http.StatusText(statusCode),
	}
	if gjson.ValidBytes(body) {
		result := gjson.ParseBytes(body)
		e.ErrorCode = int(result.Get("errorCode").Int())
		e.ErrorMsg = result.Get("errorMsg").String()
		e.UserMsg = result.Get("usrMsg").String()
	} else {
		e.ErrorMsg = strings.TrimSpace(string(body))
	}
	return e
}

func (e *RestAPIError) Error() string {
	msg := fmt.Sprintf("serving api request failed (url: %s): HTTP code: %d, HTTP reason: %s", e.URL, e.StatusCode, e.Reason)
	if e.ErrorCode != 0 {
		msg += fmt.Sprintf(", error code: %d", e.ErrorCode)
	}
	if e.ErrorMsg != "" {
		msg += ", error msg: " + e.ErrorMsg
	}
	if e.UserMsg != "" {
		msg += ", user msg: " + e.UserMsg
	}
	return msg
}

// AsRestAPIError unwraps err into a *RestAPIError.
func AsRestAPIError(err error) (*RestAPIError, bool) {
	var apiErr *RestAPIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasErrorCode reports whether err is a RestAPIError carrying the application error code.
func HasErrorCode(err error, code int) bool {
	apiErr, ok := AsRestAPIError(err)
	return ok && apiErr.ErrorCode == code
}

// IsNotFound reports whether err means the deployment does not exist.
func IsNotFound(err error) bool {
	apiErr, ok := AsRestAPIError(err)
	return ok && (apiErr.StatusCode == http.StatusNotFound || apiErr.ErrorCode == constants.ErrorCodeServingNotFound)
}

// IsDuplicatedEntry reports whether err means a deployment with the same name exists.
func IsDuplicatedEntry(err error) bool {
	return HasErrorCode(err, constants.ErrorCodeDuplicatedEntry)
}

// IsRetriable reports whether a request failing with err may be retried.
func IsRetriable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	apiErr, ok := AsRestAPIError(err)
	if !ok {
		return true
	}
	return apiErr.StatusCode >= http.StatusInternalServerError
}
