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

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/kserve/servingctl/pkg/constants"
	"github.com/kserve/servingctl/pkg/inference"
)

// predictInput holds the predict flags. At most one is set.
type predictInput struct {
	data    string
	inputs  string
	csvFile string
}

// build turns the flags into the data and inputs arguments of a prediction.
func (in *predictInput) build(protocol string) (data interface{}, inputs interface{}, err error) {
	switch {
	case in.data != "":
		data, err = decodeData(protocol, in.data)
		return data, nil, err
	case in.inputs != "":
		if err := json.Unmarshal([]byte(in.inputs), &inputs); err != nil {
			return nil, nil, errors.Wrap(err, "--inputs must be valid JSON")
		}
		return nil, inputs, nil
	case in.csvFile != "":
		inputs, err = readCSVInputs(in.csvFile)
		return nil, inputs, err
	default:
		return nil, nil, errors.New("one of --data, --inputs or --inputs-csv is required")
	}
}

// decodeData reads InferInput values for gRPC deployments, a single object or
// a list, and a JSON object otherwise.
func decodeData(protocol string, raw string) (interface{}, error) {
	if protocol != constants.APIProtocolGRPC {
		var body map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return nil, errors.Wrap(err, "--data must be a JSON object")
		}
		return body, nil
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var in inference.InferInput
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return nil, errors.Wrap(err, "--data must hold inference inputs")
		}
		return []inference.InferInput{in}, nil
	}
	var infers []inference.InferInput
	if err := json.Unmarshal([]byte(raw), &infers); err != nil {
		return nil, errors.Wrap(err, "--data must hold inference inputs")
	}
	return infers, nil
}

// readCSVInputs reads a CSV file with a header row. Each row becomes one
// instance keyed by column name, with numeric cells parsed as numbers.
func readCSVInputs(path string) ([]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	rows, err := gocsv.CSVToMaps(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	instances := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		instance := make(map[string]interface{}, len(row))
		for column, cell := range row {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				instance[column] = v
			} else {
				instance[column] = cell
			}
		}
		instances = append(instances, instance)
	}
	return instances, nil
}
