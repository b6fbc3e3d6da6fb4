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

package utils

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onsi/gomega"
)

func TestUnionUtil(t *testing.T) {
	scenarios := map[string]struct {
		input1   map[string]string
		input2   map[string]string
		expected map[string]string
	}{
		"UnionTwoMaps": {
			input1:   map[string]string{"Content-Type": "application/json", "Accept": "*/*"},
			input2:   map[string]string{"Host": "mnist.demo.example.com"},
			expected: map[string]string{"Content-Type": "application/json", "Accept": "*/*", "Host": "mnist.demo.example.com"},
		},
		"UnionTwoMapsOverwritten": {
			input1:   map[string]string{"Accept": "*/*"},
			input2:   map[string]string{"Accept": "application/json"},
			expected: map[string]string{"Accept": "application/json"},
		},
		"UnionNilMaps": {
			input1:   nil,
			input2:   nil,
			expected: map[string]string{},
		},
	}
	for name, scenario := range scenarios {
		result := Union(scenario.input1, scenario.input2)

		if diff := cmp.Diff(scenario.expected, result); diff != "" {
			t.Errorf("Test %q unexpected result (-want +got): %v", name, diff)
		}
	}
}

func TestFirstNonNilError(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	first := errors.New("first")
	g.Expect(FirstNonNilError([]error{nil, first, errors.New("second")})).To(gomega.Equal(first))
	g.Expect(FirstNonNilError([]error{nil, nil})).To(gomega.BeNil())
}

func TestIsPrefixSupported(t *testing.T) {
	prefixes := []string{"s3://", "gs://"}
	scenarios := map[string]struct {
		input    string
		expected bool
	}{
		"SupportedPrefix":   {input: "s3://bucket/model", expected: true},
		"UnsupportedPrefix": {input: "hdfs://model", expected: false},
		"EmptyInput":        {input: "", expected: false},
	}
	for name, scenario := range scenarios {
		if got := IsPrefixSupported(scenario.input, prefixes); got != scenario.expected {
			t.Errorf("Test %q expected %v, got %v", name, scenario.expected, got)
		}
	}
}

func TestMaxInt(t *testing.T) {
	scenarios := map[string]struct {
		input    []int
		expected int
	}{
		"Empty":    {input: nil, expected: 0},
		"Single":   {input: []int{-3}, expected: -3},
		"Multiple": {input: []int{2, 7, 5}, expected: 7},
	}
	for name, scenario := range scenarios {
		if got := MaxInt(scenario.input...); got != scenario.expected {
			t.Errorf("Test %q expected %d, got %d", name, scenario.expected, got)
		}
	}
}
