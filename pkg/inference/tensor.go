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
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

type contentsField struct {
	name    string
	convert func(interface{}) (protoreflect.Value, error)
}

func contentsFieldFor(datatype string) (contentsField, error) {
	switch datatype {
	case DatatypeBool:
		return contentsField{"bool_contents", func(v interface{}) (protoreflect.Value, error) {
			b, ok := v.(bool)
			if !ok {
				return protoreflect.Value{}, fmt.Errorf("%v (%T) is not a bool", v, v)
			}
			return protoreflect.ValueOfBool(b), nil
		}}, nil
	case DatatypeInt8, DatatypeInt16, DatatypeInt32:
		return contentsField{"int_contents", func(v interface{}) (protoreflect.Value, error) {
			i, err := toInt64(v)
			if err != nil {
				return protoreflect.Value{}, err
			}
			if i < math.MinInt32 || i > math.MaxInt32 {
				return protoreflect.Value{}, fmt.Errorf("%d overflows %s", i, datatype)
			}
			return protoreflect.ValueOfInt32(int32(i)), nil
		}}, nil
	case DatatypeInt64:
		return contentsField{"int64_contents", func(v interface{}) (protoreflect.Value, error) {
			i, err := toInt64(v)
			return protoreflect.ValueOfInt64(i), err
		}}, nil
	case DatatypeUint8, DatatypeUint16, DatatypeUint32:
		return contentsField{"uint_contents", func(v interface{}) (protoreflect.Value, error) {
			u, err := toUint64(v)
			if err != nil {
				return protoreflect.Value{}, err
			}
			if u > math.MaxUint32 {
				return protoreflect.Value{}, fmt.Errorf("%d overflows %s", u, datatype)
			}
			return protoreflect.ValueOfUint32(uint32(u)), nil
		}}, nil
	case DatatypeUint64:
		return contentsField{"uint64_contents", func(v interface{}) (protoreflect.Value, error) {
			u, err := toUint64(v)
			return protoreflect.ValueOfUint64(u), err
		}}, nil
	case DatatypeFP32:
		return contentsField{"fp32_contents", func(v interface{}) (protoreflect.Value, error) {
			f, err := toFloat64(v)
			return protoreflect.ValueOfFloat32(float32(f)), err
		}}, nil
	case DatatypeFP64:
		return contentsField{"fp64_contents", func(v interface{}) (protoreflect.Value, error) {
			f, err := toFloat64(v)
			return protoreflect.ValueOfFloat64(f), err
		}}, nil
	case DatatypeBytes:
		return contentsField{"bytes_contents", func(v interface{}) (protoreflect.Value, error) {
			switch t := v.(type) {
			case string:
				return protoreflect.ValueOfBytes([]byte(t)), nil
			case []byte:
				return protoreflect.ValueOfBytes(t), nil
			}
			return protoreflect.Value{}, fmt.Errorf("%v (%T) is not a string", v, v)
		}}, nil
	}
	return contentsField{}, newValidationError("unsupported inference input datatype %q", datatype)
}

func encodeInput(msgs *inferenceMessages, in InferInput) (*dynamicpb.Message, error) {
	fields := msgs.input.Fields()
	t := dynamicpb.NewMessage(msgs.input)
	t.Set(fields.ByName("name"), protoreflect.ValueOfString(in.Name))
	t.Set(fields.ByName("datatype"), protoreflect.ValueOfString(in.Datatype))

	values := flatten(in.Data)
	shape := in.Shape
	if len(shape) == 0 {
		shape = []int64{int64(len(values))}
	}
	shapeList := t.Mutable(fields.ByName("shape")).List()
	for _, dim := range shape {
		shapeList.Append(protoreflect.ValueOfInt64(dim))
	}
	if len(in.Parameters) > 0 {
		if err := encodeParameters(msgs, t.Mutable(fields.ByName("parameters")).Map(), in.Parameters); err != nil {
			return nil, err
		}
	}

	cf, err := contentsFieldFor(in.Datatype)
	if err != nil {
		return nil, err
	}
	contents := dynamicpb.NewMessage(msgs.contents)
	list := contents.Mutable(msgs.contents.Fields().ByName(protoreflect.Name(cf.name))).List()
	for i, v := range values {
		pv, err := cf.convert(v)
		if err != nil {
			return nil, newValidationError("invalid element %d of inference input %q: %v", i, in.Name, err)
		}
		list.Append(pv)
	}
	t.Set(fields.ByName("contents"), protoreflect.ValueOfMessage(contents))
	return t, nil
}

func encodeParameters(msgs *inferenceMessages, m protoreflect.Map, params map[string]interface{}) error {
	fields := msgs.parameter.Fields()
	for key, v := range params {
		p := dynamicpb.NewMessage(msgs.parameter)
		rv := reflect.ValueOf(v)
		switch t := v.(type) {
		case bool:
			p.Set(fields.ByName("bool_param"), protoreflect.ValueOfBool(t))
		case string:
			p.Set(fields.ByName("string_param"), protoreflect.ValueOfString(t))
		default:
			switch {
			case rv.CanInt():
				p.Set(fields.ByName("int64_param"), protoreflect.ValueOfInt64(rv.Int()))
			case rv.CanUint():
				p.Set(fields.ByName("uint64_param"), protoreflect.ValueOfUint64(rv.Uint()))
			case rv.CanFloat():
				p.Set(fields.ByName("double_param"), protoreflect.ValueOfFloat64(rv.Float()))
			default:
				return newValidationError("unsupported type %T of inference parameter %q", v, key)
			}
		}
		m.Set(protoreflect.ValueOfString(key).MapKey(), protoreflect.ValueOfMessage(p))
	}
	return nil
}

func decodeParameters(m protoreflect.Map) map[string]interface{} {
	if m.Len() == 0 {
		return nil
	}
	params := make(map[string]interface{}, m.Len())
	m.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		p := v.Message()
		if fd := p.WhichOneof(p.Descriptor().Oneofs().ByName("parameter_choice")); fd != nil {
			params[k.String()] = p.Get(fd).Interface()
		}
		return true
	})
	return params
}

// decodeContents reads the typed contents of an output tensor.
func decodeContents(contents protoreflect.Message, datatype string) (interface{}, error) {
	cf, err := contentsFieldFor(datatype)
	if err != nil {
		return nil, err
	}
	list := contents.Get(contents.Descriptor().Fields().ByName(protoreflect.Name(cf.name))).List()
	n := list.Len()
	switch datatype {
	case DatatypeBool:
		out := make([]bool, n)
		for i := range out {
			out[i] = list.Get(i).Bool()
		}
		return out, nil
	case DatatypeInt8, DatatypeInt16, DatatypeInt32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(list.Get(i).Int())
		}
		return out, nil
	case DatatypeInt64:
		out := make([]int64, n)
		for i := range out {
			out[i] = list.Get(i).Int()
		}
		return out, nil
	case DatatypeUint8, DatatypeUint16, DatatypeUint32:
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(list.Get(i).Uint())
		}
		return out, nil
	case DatatypeUint64:
		out := make([]uint64, n)
		for i := range out {
			out[i] = list.Get(i).Uint()
		}
		return out, nil
	case DatatypeFP32:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(list.Get(i).Float())
		}
		return out, nil
	case DatatypeFP64:
		out := make([]float64, n)
		for i := range out {
			out[i] = list.Get(i).Float()
		}
		return out, nil
	default:
		out := make([]string, n)
		for i := range out {
			out[i] = string(list.Get(i).Bytes())
		}
		return out, nil
	}
}

// decodeRaw reads little-endian raw output contents.
func decodeRaw(raw []byte, datatype string) (interface{}, error) {
	if datatype == DatatypeBytes {
		return decodeRawBytes(raw)
	}
	size, ok := map[string]int{
		DatatypeBool: 1, DatatypeInt8: 1, DatatypeUint8: 1,
		DatatypeInt16: 2, DatatypeUint16: 2, DatatypeFP16: 2,
		DatatypeInt32: 4, DatatypeUint32: 4, DatatypeFP32: 4,
		DatatypeInt64: 8, DatatypeUint64: 8, DatatypeFP64: 8,
	}[datatype]
	if !ok {
		return nil, fmt.Errorf("unsupported output datatype %q", datatype)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("raw %s output of %d bytes is not a multiple of %d", datatype, len(raw), size)
	}
	n := len(raw) / size
	le := binary.LittleEndian
	switch datatype {
	case DatatypeBool:
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	case DatatypeInt8, DatatypeInt16, DatatypeInt32:
		out := make([]int32, n)
		for i := range out {
			switch size {
			case 1:
				out[i] = int32(int8(raw[i]))
			case 2:
				out[i] = int32(int16(le.Uint16(raw[i*2:])))
			default:
				out[i] = int32(le.Uint32(raw[i*4:]))
			}
		}
		return out, nil
	case DatatypeUint8, DatatypeUint16, DatatypeUint32:
		out := make([]uint32, n)
		for i := range out {
			switch size {
			case 1:
				out[i] = uint32(raw[i])
			case 2:
				out[i] = uint32(le.Uint16(raw[i*2:]))
			default:
				out[i] = le.Uint32(raw[i*4:])
			}
		}
		return out, nil
	case DatatypeInt64:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(le.Uint64(raw[i*8:]))
		}
		return out, nil
	case DatatypeUint64:
		out := make([]uint64, n)
		for i := range out {
			out[i] = le.Uint64(raw[i*8:])
		}
		return out, nil
	case DatatypeFP16:
		out := make([]float32, n)
		for i := range out {
			out[i] = float16ToFloat32(le.Uint16(raw[i*2:]))
		}
		return out, nil
	case DatatypeFP32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
		}
		return out, nil
	default:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
		}
		return out, nil
	}
}

// decodeRawBytes reads BYTES elements, each prefixed by its 4-byte little-endian length.
func decodeRawBytes(raw []byte) ([]string, error) {
	out := []string{}
	for len(raw) > 0 {
		if len(raw) < 4 {
			return nil, fmt.Errorf("truncated BYTES element length")
		}
		n := int(binary.LittleEndian.Uint32(raw))
		raw = raw[4:]
		if len(raw) < n {
			return nil, fmt.Errorf("BYTES element of %d bytes exceeds remaining %d bytes", n, len(raw))
		}
		out = append(out, string(raw[:n]))
		raw = raw[n:]
	}
	return out, nil
}

func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}
