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
	"fmt"
	"reflect"
)

// Tensor datatypes of the open inference protocol.
const (
	DatatypeBool   = "BOOL"
	DatatypeUint8  = "UINT8"
	DatatypeUint16 = "UINT16"
	DatatypeUint32 = "UINT32"
	DatatypeUint64 = "UINT64"
	DatatypeInt8   = "INT8"
	DatatypeInt16  = "INT16"
	DatatypeInt32  = "INT32"
	DatatypeInt64  = "INT64"
	DatatypeFP16   = "FP16"
	DatatypeFP32   = "FP32"
	DatatypeFP64   = "FP64"
	DatatypeBytes  = "BYTES"
)

// InferInput is one named input tensor of a binary protocol inference request.
type InferInput struct {
	Name       string                 `json:"name"`
	Shape      []int64                `json:"shape,omitempty"`
	Datatype   string                 `json:"datatype"`
	Data       interface{}            `json:"data,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// NewInferInputFromMap reads name, shape, datatype, data and parameters from
// m. Missing keys are left unset.
func NewInferInputFromMap(m map[string]interface{}) (InferInput, error) {
	in := InferInput{Data: m["data"]}
	if v, ok := m["name"]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return in, newValidationError("inference input name must be a string, got %T", v)
		}
		in.Name = name
	}
	if v, ok := m["datatype"]; ok && v != nil {
		datatype, ok := v.(string)
		if !ok {
			return in, newValidationError("inference input datatype must be a string, got %T", v)
		}
		in.Datatype = datatype
	}
	if v, ok := m["shape"]; ok && v != nil {
		shape, err := toShape(v)
		if err != nil {
			return in, err
		}
		in.Shape = shape
	}
	if v, ok := m["parameters"]; ok && v != nil {
		parameters, ok := v.(map[string]interface{})
		if !ok {
			return in, newValidationError("inference input parameters must be a mapping, got %T", v)
		}
		in.Parameters = parameters
	}
	return in, nil
}

func toShape(v interface{}) ([]int64, error) {
	rv := reflect.ValueOf(v)
	if !isSequence(v) {
		return nil, newValidationError("inference input shape must be a list of integers, got %T", v)
	}
	shape := make([]int64, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		dim, err := toInt64(rv.Index(i).Interface())
		if err != nil {
			return nil, newValidationError("invalid inference input shape %v: %v", v, err)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}

// flatten returns the scalar leaves of arbitrarily nested sequences in row-major order.
func flatten(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		return []interface{}{b}
	}
	if !isSequence(v) {
		return []interface{}{v}
	}
	rv := reflect.ValueOf(v)
	var out []interface{}
	for i := 0; i < rv.Len(); i++ {
		out = append(out, flatten(rv.Index(i).Interface())...)
	}
	return out
}

// isSequence reports whether v is a slice or array other than a byte string.
func isSequence(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// isMapping reports whether v is a map.
func isMapping(v interface{}) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Map
}

func toInt64(v interface{}) (int64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		return int64(rv.Uint()), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}

func toUint64(v interface{}) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanUint():
		return rv.Uint(), nil
	case rv.CanInt() && rv.Int() >= 0:
		return uint64(rv.Int()), nil
	case rv.CanFloat() && rv.Float() >= 0 && rv.Float() == float64(uint64(rv.Float())):
		return uint64(rv.Float()), nil
	}
	return 0, fmt.Errorf("%v (%T) is not an unsigned integer", v, v)
}

func toFloat64(v interface{}) (float64, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}
