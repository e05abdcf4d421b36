/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: signature.go
Description: Declared parameter registry for a fuzz target: enum parameters grouped by
identical domain, numeric parameters, input values, and flat-int64 (de)serialization for
the on-disk corpus format.
*/

package signature

import (
	"fmt"
	"strconv"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
)

// EnumParam declares one enumeration-typed parameter over [Start, Start+Size).
type EnumParam struct {
	Name    string
	Start   int64
	Size    int
	Entries []string
}

// ValueString renders a domain value, using the entry name when available.
func (p EnumParam) ValueString(value int64) string {
	if len(p.Entries) > 0 && value >= p.Start && value < p.Start+int64(p.Size) {
		return p.Entries[value-p.Start]
	}
	return strconv.FormatInt(value, 10)
}

// NumericParam declares one integer-typed parameter.
type NumericParam struct {
	Name string
}

// Signature is the declared parameter set of the target under fuzz. It is
// built once before the driver runs and read-only afterwards.
type Signature struct {
	enumParams    []EnumParam
	enumGroups    [][]int
	numericParams []NumericParam
	names         map[string]bool
}

// New creates an empty signature.
func New() *Signature {
	return &Signature{names: make(map[string]bool)}
}

func (s *Signature) register(name string) error {
	if s.names[name] {
		return fmt.Errorf("signature: parameter name %q is duplicated", name)
	}
	s.names[name] = true
	return nil
}

// AddEnumEntries declares an enum parameter with named entries starting at 0.
func (s *Signature) AddEnumEntries(name string, entries []string) error {
	if len(entries) == 0 || len(entries) > bitvec.SizeMax {
		return fmt.Errorf("signature: enum %q must have 1..%d entries", name, bitvec.SizeMax)
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[i] == entries[j] {
				return fmt.Errorf("signature: duplicate enum entry %q in enum %q", entries[i], name)
			}
		}
	}
	return s.addEnum(EnumParam{Name: name, Start: 0, Size: len(entries), Entries: entries})
}

// AddEnumRange declares an enum parameter over [start, start+size).
func (s *Signature) AddEnumRange(name string, start int64, size int) error {
	if size <= 0 || size > bitvec.SizeMax {
		return fmt.Errorf("signature: enum %q must have 1..%d values", name, bitvec.SizeMax)
	}
	return s.addEnum(EnumParam{Name: name, Start: start, Size: size})
}

func (s *Signature) addEnum(p EnumParam) error {
	if err := s.register(p.Name); err != nil {
		return err
	}
	idx := len(s.enumParams)
	s.enumParams = append(s.enumParams, p)
	for gi, group := range s.enumGroups {
		first := s.enumParams[group[0]]
		if first.Start == p.Start && first.Size == p.Size {
			s.enumGroups[gi] = append(group, idx)
			return nil
		}
	}
	s.enumGroups = append(s.enumGroups, []int{idx})
	return nil
}

// AddInt declares a numeric parameter.
func (s *Signature) AddInt(name string) error {
	if err := s.register(name); err != nil {
		return err
	}
	s.numericParams = append(s.numericParams, NumericParam{Name: name})
	return nil
}

// EnumParams returns the enum parameters in declaration order.
func (s *Signature) EnumParams() []EnumParam { return s.enumParams }

// NumericParams returns the numeric parameters in declaration order.
func (s *Signature) NumericParams() []NumericParam { return s.numericParams }

// EnumGroups returns the enum parameters grouped by identical (start, size).
func (s *Signature) EnumGroups() [][]EnumParam {
	groups := make([][]EnumParam, len(s.enumGroups))
	for gi, group := range s.enumGroups {
		for _, idx := range group {
			groups[gi] = append(groups[gi], s.enumParams[idx])
		}
	}
	return groups
}

// EnumNames returns the enum parameter names in declaration order.
func (s *Signature) EnumNames() []string {
	names := make([]string, len(s.enumParams))
	for i, p := range s.enumParams {
		names[i] = p.Name
	}
	return names
}

// NumericNames returns the numeric parameter names in declaration order.
func (s *Signature) NumericNames() []string {
	names := make([]string, len(s.numericParams))
	for i, p := range s.numericParams {
		names[i] = p.Name
	}
	return names
}

// NumEnum returns the number of enum parameters.
func (s *Signature) NumEnum() int { return len(s.enumParams) }

// NumNumeric returns the number of numeric parameters.
func (s *Signature) NumNumeric() int { return len(s.numericParams) }

// Size returns the total parameter count.
func (s *Signature) Size() int { return len(s.enumParams) + len(s.numericParams) }

// NewEnumBVs builds a bitvec array over the enum parameters, optionally full.
func (s *Signature) NewEnumBVs(setAll bool) bitvec.Array {
	vecs := make([]*bitvec.BitVec, 0, len(s.enumParams))
	for _, p := range s.enumParams {
		var bv *bitvec.BitVec
		if len(p.Entries) > 0 {
			bv = bitvec.NewNamed(p.Name, p.Entries)
		} else {
			bv = bitvec.New(p.Name, p.Start, p.Size)
		}
		if setAll {
			bv.SetAll()
		}
		vecs = append(vecs, bv)
	}
	return bitvec.NewArray(vecs)
}
