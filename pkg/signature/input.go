/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: input.go
Description: Concrete input values and their flat-int64 corpus serialization: enum
arguments first, numeric arguments second, both in declaration order.
*/

package signature

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDeserialize reports a corpus record too short for the declared signature.
var ErrDeserialize = errors.New("signature: deserialization failed")

// Input is one concrete argument assignment: complete maps over the declared
// enum and numeric parameter sets.
type Input struct {
	Enum    map[string]int64
	Numeric map[string]int64
}

// NewInput builds an input from the two argument maps.
func NewInput(enumArgs, numericArgs map[string]int64) Input {
	return Input{Enum: enumArgs, Numeric: numericArgs}
}

// At returns the value of the named parameter, enum or numeric.
func (in Input) At(name string) int64 {
	if v, ok := in.Enum[name]; ok {
		return v
	}
	return in.Numeric[name]
}

// Serialize flattens the input into int64s: enum parameters in declaration
// order followed by numeric parameters in declaration order.
func (s *Signature) Serialize(in Input) []int64 {
	data := make([]int64, 0, s.Size())
	for _, p := range s.enumParams {
		data = append(data, in.Enum[p.Name])
	}
	for _, p := range s.numericParams {
		data = append(data, in.Numeric[p.Name])
	}
	return data
}

// Deserialize rebuilds an input from flattened values. Too few values is an
// error; extra values are truncated (the caller logs a warning).
func (s *Signature) Deserialize(data []int64) (Input, error) {
	if len(data) < s.Size() {
		return Input{}, fmt.Errorf("%w: expected %d args, found %d", ErrDeserialize, s.Size(), len(data))
	}
	enumArgs := make(map[string]int64, len(s.enumParams))
	numericArgs := make(map[string]int64, len(s.numericParams))
	for i, p := range s.enumParams {
		enumArgs[p.Name] = data[i]
	}
	for i, p := range s.numericParams {
		numericArgs[p.Name] = data[len(s.enumParams)+i]
	}
	return Input{Enum: enumArgs, Numeric: numericArgs}, nil
}

// Key returns a canonical map key for the input under this signature.
func (s *Signature) Key(in Input) string {
	data := s.Serialize(in)
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

// InputString renders the input for dumps, using enum entry names.
func (s *Signature) InputString(in Input) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range s.enumParams {
		sb.WriteString(p.ValueString(in.Enum[p.Name]))
		if i != len(s.enumParams)-1 {
			sb.WriteString(",")
		}
	}
	if len(s.enumParams) > 0 && len(s.numericParams) > 0 {
		sb.WriteString(",")
	}
	for i, p := range s.numericParams {
		sb.WriteString(strconv.FormatInt(in.Numeric[p.Name], 10))
		if i != len(s.numericParams)-1 {
			sb.WriteString(",")
		}
	}
	sb.WriteString(")")
	return sb.String()
}
