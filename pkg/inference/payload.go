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

package inference

import (
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/constants"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is a validated inference request. Exactly one of Body and Inputs is set.
type Payload struct {
	// Body of a REST request: {"instances": [...]} or {"inputs": [...]}.
	Body map[string]interface{}
	// Inputs of a binary protocol request.
	Inputs []InferInput
}

// IsBinary reports whether the payload targets the binary protocol.
func (p *Payload) IsBinary() bool {
	return p.Body == nil
}

// Marshal encodes the payload as JSON. Binary payloads are encoded as
// {"inputs": [...]}.
func (p *Payload) Marshal() ([]byte, error) {
	var v interface{} = p.Body
	if p.IsBinary() {
		v = map[string]interface{}{"inputs": p.Inputs}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode inference payload")
	}
	return data, nil
}

// ValidateAndBuild checks that exactly one of data and inputs is provided in
// a shape matching the API protocol and builds the request payload from it.
//
// data is the raw payload: a map[string]interface{} holding "instances" or
// "inputs" for REST, or InferInput values for gRPC. inputs are bare values:
// a mapping or a list, wrapped as needed for the protocol.
func ValidateAndBuild(protocol string, data interface{}, inputs interface{}) (*Payload, error) {
	protocol = normalizeProtocol(protocol)
	if err := Validate(protocol, data, inputs); err != nil {
		return nil, err
	}
	return build(protocol, data, inputs)
}

// normalizeProtocol treats a missing protocol as REST, the serving default.
func normalizeProtocol(protocol string) string {
	if protocol == "" {
		return constants.APIProtocolREST
	}
	return protocol
}

// Validate checks the user provided inference payload.
func Validate(protocol string, data interface{}, inputs interface{}) error {
	protocol = normalizeProtocol(protocol)
	if protocol != constants.APIProtocolREST && protocol != constants.APIProtocolGRPC {
		return newValidationError("unsupported API protocol %q, expected %s or %s",
			protocol, constants.APIProtocolREST, constants.APIProtocolGRPC)
	}
	hasData, hasInputs := !isNil(data), !isNil(inputs)
	switch {
	case hasData && hasInputs:
		return newValidationError("inference data and inputs parameters cannot be provided together")
	case !hasData && !hasInputs:
		return newValidationError("either inference data or inputs must be provided")
	case hasData:
		if isSequence(data) && reflect.ValueOf(data).Len() == 0 {
			return newValidationError("inference inputs cannot be empty")
		}
		return validateData(protocol, data)
	default:
		if isSequence(inputs) && reflect.ValueOf(inputs).Len() == 0 {
			return newValidationError("inference inputs cannot be empty")
		}
		return validateInputs(inputs)
	}
}

func validateData(protocol string, data interface{}) error {
	if protocol == constants.APIProtocolREST && isInferInput(data) {
		return newValidationError("inference data cannot be of type InferInput for deployments using the REST protocol, use a mapping instead")
	}
	if protocol == constants.APIProtocolGRPC && isMapping(data) {
		return newValidationError("inference data cannot be a mapping for deployments using the gRPC protocol, " +
			"convert it to InferInput or use the inputs parameter instead")
	}
	if isMapping(data) {
		m, ok := data.(map[string]interface{})
		if !ok {
			return newValidationError("inference data must be a mapping with string keys, got %T", data)
		}
		found := false
		for _, key := range []string{"instances", "inputs"} {
			v, ok := m[key]
			if !ok {
				continue
			}
			if !isSequence(v) {
				return newValidationError("inference data field %q should contain a list", key)
			}
			found = true
		}
		if !found {
			return newValidationError("inference data is missing the 'instances' key")
		}
		return nil
	}
	if !isInferInput(data) {
		expected := "a mapping"
		if protocol == constants.APIProtocolGRPC {
			expected = "an InferInput"
		}
		return newValidationError("inference data must be %s, otherwise use the inputs parameter", expected)
	}
	return nil
}

func validateInputs(inputs interface{}) error {
	if isInferInput(inputs) {
		return newValidationError("inference inputs cannot be of type InferInput, use the data parameter instead")
	}
	if !isMapping(inputs) && !isSequence(inputs) {
		return newValidationError("inference inputs type %T is not valid, supported types are mapping or list", inputs)
	}
	if isSequence(inputs) {
		rv := reflect.ValueOf(inputs)
		for i := 0; i < rv.Len(); i++ {
			if isInferInput(rv.Index(i).Interface()) {
				return newValidationError("inference inputs cannot be of type InferInput, use the data parameter instead")
			}
		}
	}
	return nil
}

func build(protocol string, data interface{}, inputs interface{}) (*Payload, error) {
	if !isNil(data) {
		switch protocol {
		case constants.APIProtocolGRPC:
			return &Payload{Inputs: inferInputsOf(data)}, nil
		case constants.APIProtocolREST:
			if body, ok := data.(map[string]interface{}); ok {
				return &Payload{Body: body}, nil
			}
		}
		return nil, newValidationError("inference data of type %T is not valid for the %s protocol", data, protocol)
	}
	if protocol == constants.APIProtocolGRPC {
		infers, err := buildInferInputs(inputs)
		if err != nil {
			return nil, err
		}
		return &Payload{Inputs: infers}, nil
	}
	return &Payload{Body: map[string]interface{}{"instances": buildInstances(inputs)}}, nil
}

// buildInstances wraps inputs into a batch. A list is used as a batch as soon
// as one of its elements is itself a list or mapping; a list of scalars is a
// single instance.
func buildInstances(inputs interface{}) []interface{} {
	if !isSequence(inputs) {
		return []interface{}{inputs}
	}
	rv := reflect.ValueOf(inputs)
	batch := make([]interface{}, 0, rv.Len())
	nested := false
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i).Interface()
		if isSequence(item) || isMapping(item) {
			nested = true
		}
		batch = append(batch, item)
	}
	if !nested {
		return []interface{}{inputs}
	}
	return batch
}

func buildInferInputs(inputs interface{}) ([]InferInput, error) {
	if isMapping(inputs) {
		in, err := inferInputFromValue(inputs)
		if err != nil {
			return nil, err
		}
		return []InferInput{in}, nil
	}
	rv := reflect.ValueOf(inputs)
	infers := make([]InferInput, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		in, err := inferInputFromValue(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		infers = append(infers, in)
	}
	return infers, nil
}

func inferInputFromValue(v interface{}) (InferInput, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return InferInput{}, newValidationError("inference inputs for the gRPC protocol must be mappings, got %T", v)
	}
	return NewInferInputFromMap(m)
}

func isInferInput(v interface{}) bool {
	switch t := v.(type) {
	case InferInput, *InferInput:
		return true
	case []InferInput:
		return true
	case []*InferInput:
		return true
	case []interface{}:
		if len(t) == 0 {
			return false
		}
		for _, item := range t {
			switch item.(type) {
			case InferInput, *InferInput:
			default:
				return false
			}
		}
		return true
	}
	return false
}

func inferInputsOf(v interface{}) []InferInput {
	switch t := v.(type) {
	case InferInput:
		return []InferInput{t}
	case *InferInput:
		return []InferInput{*t}
	case []InferInput:
		return t
	case []*InferInput:
		out := make([]InferInput, 0, len(t))
		for _, in := range t {
			out = append(out, *in)
		}
		return out
	case []interface{}:
		out := make([]InferInput, 0, len(t))
		for _, item := range t {
			out = append(out, inferInputsOf(item)...)
		}
		return out
	}
	return nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
