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

package v1

import (
	"fmt"
	"strings"

	"gopkg.in/go-playground/validator.v9"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/utils"
)

// Validation errors
const (
	InvalidDeploymentNameFormatError = "the deployment name %q is invalid: %s"
	UnsupportedGRPCServingToolError  = "the gRPC protocol is only supported with the %s serving tool, got %q"
	UnsupportedTransformerError      = "transformers are only supported with the %s serving tool, got %q"
	MissingPredictorScriptError      = "a predictor script is required by the %s model server"
	LimitsBelowRequestsError         = "%s resource limits %+v are lower than requests %+v"
	InvalidKafkaTopicError           = "a kafka topic is required when inference logging mode is %s"
)

var validate = validator.New()

// Validate checks the predictor after defaulting.
func (p *Predictor) Validate() error {
	return utils.FirstNonNilError([]error{
		validateDeploymentName(p.Name),
		validate.Struct(p),
		p.validateRuntime(),
		validateResources(constants.PredictorComponent, &p.Resources),
		p.validateTransformer(),
		p.validateInferenceLogger(),
	})
}

func validateDeploymentName(name string) error {
	if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf(InvalidDeploymentNameFormatError, name, strings.Join(errs, "; "))
	}
	return nil
}

func (p *Predictor) validateRuntime() error {
	if p.APIProtocol == constants.APIProtocolGRPC && p.ServingTool != constants.ServingToolKServe {
		return fmt.Errorf(UnsupportedGRPCServingToolError, constants.ServingToolKServe, p.ServingTool)
	}
	if p.ModelServer == constants.ModelServerPython && p.ScriptFile == "" {
		return fmt.Errorf(MissingPredictorScriptError, constants.ModelServerPython)
	}
	return nil
}

func (p *Predictor) validateTransformer() error {
	if p.Transformer == nil {
		return nil
	}
	if p.ServingTool != constants.ServingToolKServe {
		return fmt.Errorf(UnsupportedTransformerError, constants.ServingToolKServe, p.ServingTool)
	}
	return validateResources(constants.TransformerComponent, &p.Transformer.Resources)
}

func (p *Predictor) validateInferenceLogger() error {
	if p.InferenceLogger == nil {
		return nil
	}
	if p.InferenceLogger.Mode != constants.InferenceLoggingNone && p.InferenceLogger.KafkaTopic == nil {
		return fmt.Errorf(InvalidKafkaTopicError, p.InferenceLogger.Mode)
	}
	return nil
}

func validateResources(component constants.Component, r *Resources) error {
	if !r.Limits.IsZero() && !r.Requests.Fits(r.Limits) {
		return fmt.Errorf(LimitsBelowRequestsError, component, r.Limits, r.Requests)
	}
	return nil
}
