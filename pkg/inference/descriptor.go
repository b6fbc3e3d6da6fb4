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
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Messages of the open inference protocol (grpc_predict_v2.proto) used by the
// channel. Only the fields exchanged by ModelInfer are declared.
type inferenceMessages struct {
	parameter protoreflect.MessageDescriptor
	contents  protoreflect.MessageDescriptor
	request   protoreflect.MessageDescriptor
	input     protoreflect.MessageDescriptor
	response  protoreflect.MessageDescriptor
	output    protoreflect.MessageDescriptor
}

var (
	messagesOnce sync.Once
	messages     *inferenceMessages
	messagesErr  error
)

const (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	typeBool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	typeInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	typeInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	typeUint32  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	typeUint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	typeFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	typeDouble  = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	typeString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	typeBytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	typeMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

func field(name string, number int32, label descriptorpb.FieldDescriptorProto_Label,
	typ descriptorpb.FieldDescriptorProto_Type, typeName string,
) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func oneofField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	f := field(name, number, optional, typ, "")
	f.OneofIndex = proto.Int32(0)
	return f
}

// parametersEntry declares map<string, InferParameter>.
func parametersEntry() *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String("ParametersEntry"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("key", 1, optional, typeString, ""),
			field("value", 2, optional, typeMessage, ".inference.InferParameter"),
		},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

// tensor declares InferInputTensor or InferOutputTensor nested in parent.
func tensor(name string, parent string) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("name", 1, optional, typeString, ""),
			field("datatype", 2, optional, typeString, ""),
			field("shape", 3, repeated, typeInt64, ""),
			field("parameters", 4, repeated, typeMessage, ".inference."+parent+"."+name+".ParametersEntry"),
			field("contents", 5, optional, typeMessage, ".inference.InferTensorContents"),
		},
		NestedType: []*descriptorpb.DescriptorProto{parametersEntry()},
	}
}

func inferenceFileDescriptor() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("servingctl/grpc_predict_v2.proto"),
		Package: proto.String("inference"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("InferParameter"),
				Field: []*descriptorpb.FieldDescriptorProto{
					oneofField("bool_param", 1, typeBool),
					oneofField("int64_param", 2, typeInt64),
					oneofField("string_param", 3, typeString),
					oneofField("double_param", 4, typeDouble),
					oneofField("uint64_param", 5, typeUint64),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("parameter_choice")}},
			},
			{
				Name: proto.String("InferTensorContents"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("bool_contents", 1, repeated, typeBool, ""),
					field("int_contents", 2, repeated, typeInt32, ""),
					field("int64_contents", 3, repeated, typeInt64, ""),
					field("uint_contents", 4, repeated, typeUint32, ""),
					field("uint64_contents", 5, repeated, typeUint64, ""),
					field("fp32_contents", 6, repeated, typeFloat, ""),
					field("fp64_contents", 7, repeated, typeDouble, ""),
					field("bytes_contents", 8, repeated, typeBytes, ""),
				},
			},
			{
				Name: proto.String("ModelInferRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("model_name", 1, optional, typeString, ""),
					field("model_version", 2, optional, typeString, ""),
					field("id", 3, optional, typeString, ""),
					field("parameters", 4, repeated, typeMessage, ".inference.ModelInferRequest.ParametersEntry"),
					field("inputs", 5, repeated, typeMessage, ".inference.ModelInferRequest.InferInputTensor"),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					tensor("InferInputTensor", "ModelInferRequest"),
					parametersEntry(),
				},
			},
			{
				Name: proto.String("ModelInferResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("model_name", 1, optional, typeString, ""),
					field("model_version", 2, optional, typeString, ""),
					field("id", 3, optional, typeString, ""),
					field("parameters", 4, repeated, typeMessage, ".inference.ModelInferResponse.ParametersEntry"),
					field("outputs", 5, repeated, typeMessage, ".inference.ModelInferResponse.InferOutputTensor"),
					field("raw_output_contents", 6, repeated, typeBytes, ""),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					tensor("InferOutputTensor", "ModelInferResponse"),
					parametersEntry(),
				},
			},
		},
	}
}

func loadInferenceMessages() (*inferenceMessages, error) {
	messagesOnce.Do(func() {
		fd, err := protodesc.NewFile(inferenceFileDescriptor(), new(protoregistry.Files))
		if err != nil {
			messagesErr = errors.Wrap(err, "failed to build inference protocol descriptor")
			return
		}
		msgs := fd.Messages()
		request := msgs.ByName("ModelInferRequest")
		response := msgs.ByName("ModelInferResponse")
		messages = &inferenceMessages{
			parameter: msgs.ByName("InferParameter"),
			contents:  msgs.ByName("InferTensorContents"),
			request:   request,
			input:     request.Messages().ByName("InferInputTensor"),
			response:  response,
			output:    response.Messages().ByName("InferOutputTensor"),
		}
	})
	return messages, messagesErr
}
