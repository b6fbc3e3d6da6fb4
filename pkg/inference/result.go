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
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// InferOutput is one named output tensor. Data holds a typed slice matching
// the datatype: []bool, []int32, []int64, []uint32, []uint64, []float32,
// []float64 or []string for BYTES.
type InferOutput struct {
	Name       string                 `json:"name"`
	Datatype   string                 `json:"datatype"`
	Shape      []int64                `json:"shape"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Data       interface{}            `json:"data"`
}

// InferResult is the response of a binary protocol inference request.
type InferResult struct {
	ModelName    string                 `json:"model_name"`
	ModelVersion string                 `json:"model_version,omitempty"`
	ID           string                 `json:"id,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Outputs      []InferOutput          `json:"outputs"`
}

// Output returns the output tensor with the given name.
func (r *InferResult) Output(name string) (*InferOutput, bool) {
	for i := range r.Outputs {
		if r.Outputs[i].Name == name {
			return &r.Outputs[i], true
		}
	}
	return nil, false
}

// Marshal encodes the result as JSON.
func (r *InferResult) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func newModelInferRequest(msgs *inferenceMessages, modelName string, inputs []InferInput) (*dynamicpb.Message, error) {
	fields := msgs.request.Fields()
	req := dynamicpb.NewMessage(msgs.request)
	req.Set(fields.ByName("model_name"), protoreflect.ValueOfString(modelName))
	list := req.Mutable(fields.ByName("inputs")).List()
	for _, in := range inputs {
		t, err := encodeInput(msgs, in)
		if err != nil {
			return nil, err
		}
		list.Append(protoreflect.ValueOfMessage(t))
	}
	return req, nil
}

func decodeModelInferResponse(msgs *inferenceMessages, resp protoreflect.Message) (*InferResult, error) {
	fields := msgs.response.Fields()
	result := &InferResult{
		ModelName:    resp.Get(fields.ByName("model_name")).String(),
		ModelVersion: resp.Get(fields.ByName("model_version")).String(),
		ID:           resp.Get(fields.ByName("id")).String(),
		Parameters:   decodeParameters(resp.Get(fields.ByName("parameters")).Map()),
	}
	outputs := resp.Get(fields.ByName("outputs")).List()
	raw := resp.Get(fields.ByName("raw_output_contents")).List()
	outputFields := msgs.output.Fields()
	for i := 0; i < outputs.Len(); i++ {
		t := outputs.Get(i).Message()
		out := InferOutput{
			Name:       t.Get(outputFields.ByName("name")).String(),
			Datatype:   t.Get(outputFields.ByName("datatype")).String(),
			Parameters: decodeParameters(t.Get(outputFields.ByName("parameters")).Map()),
		}
		shape := t.Get(outputFields.ByName("shape")).List()
		out.Shape = make([]int64, shape.Len())
		for j := range out.Shape {
			out.Shape[j] = shape.Get(j).Int()
		}
		var err error
		if raw.Len() > 0 {
			if i >= raw.Len() {
				return nil, errors.Errorf("missing raw contents of output %q", out.Name)
			}
			out.Data, err = decodeRaw(raw.Get(i).Bytes(), out.Datatype)
		} else {
			out.Data, err = decodeContents(t.Get(outputFields.ByName("contents")).Message(), out.Datatype)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode output %q", out.Name)
		}
		result.Outputs = append(result.Outputs, out)
	}
	return result, nil
}
