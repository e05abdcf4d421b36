/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: array.go
Description: Per-enum-parameter vector of bitvecs with whole-signature set algebra.
*/

package bitvec

// Array holds one BitVec per declared enum parameter, in declaration order.
type Array struct {
	vecs []*BitVec
}

// NewArray wraps the given bitvecs.
func NewArray(vecs []*BitVec) Array { return Array{vecs: vecs} }

// Clone deep-copies the array.
func (a Array) Clone() Array {
	vecs := make([]*BitVec, len(a.vecs))
	for i, bv := range a.vecs {
		vecs[i] = bv.Clone()
	}
	return Array{vecs: vecs}
}

// Len returns the number of parameters.
func (a Array) Len() int { return len(a.vecs) }

// At returns the i-th bitvec.
func (a Array) At(i int) *BitVec { return a.vecs[i] }

// ByName returns the bitvec for the named parameter, or nil.
func (a Array) ByName(name string) *BitVec {
	for _, bv := range a.vecs {
		if bv.name == name {
			return bv
		}
	}
	return nil
}

// Push appends a copy of the bitvec.
func (a *Array) Push(bv *BitVec) { a.vecs = append(a.vecs, bv.Clone()) }

// SetAll fills every set.
func (a Array) SetAll() {
	for _, bv := range a.vecs {
		bv.SetAll()
	}
}

// Set marks each parameter's value from the enum argument map.
func (a Array) Set(enumArgs map[string]int64) {
	for _, bv := range a.vecs {
		bv.Set(enumArgs[bv.name])
	}
}

// Empty reports whether every set is empty.
func (a Array) Empty() bool {
	for _, bv := range a.vecs {
		if !bv.Empty() {
			return false
		}
	}
	return true
}

// Full reports whether every set is full.
func (a Array) Full() bool {
	for _, bv := range a.vecs {
		if !bv.Full() {
			return false
		}
	}
	return true
}

// In reports element-wise subset inclusion.
func (a Array) In(other Array) bool {
	for i, bv := range a.vecs {
		if !bv.In(other.vecs[i]) {
			return false
		}
	}
	return true
}

// And intersects element-wise in place.
func (a Array) And(other Array) {
	for i, bv := range a.vecs {
		bv.And(other.vecs[i])
	}
}

// Or unions element-wise in place.
func (a Array) Or(other Array) {
	for i, bv := range a.vecs {
		bv.Or(other.vecs[i])
	}
}

// OrOne unions a single parameter's bitvec in place.
func (a Array) OrOne(other *BitVec) {
	for _, bv := range a.vecs {
		if bv.name == other.name {
			bv.Or(other)
			return
		}
	}
}

// Negate complements every set in place.
func (a Array) Negate() {
	for _, bv := range a.vecs {
		bv.Negate()
	}
}

// Distinct returns, for each parameter where a and other are disjoint, a copy
// of other's bits; parameters with overlap stay empty. Used for inclusion
// learning: the result is the off-path value set.
func (a Array) Distinct(other Array) Array {
	out := a.Clone()
	for i := range out.vecs {
		out.vecs[i].UnsetAll()
		if a.vecs[i].Exclusive(other.vecs[i]) {
			out.vecs[i] = other.vecs[i].Clone()
		}
	}
	return out
}

// ExportNonEmpty returns a copy of the first non-empty bitvec.
func (a Array) ExportNonEmpty() *BitVec {
	for _, bv := range a.vecs {
		if !bv.Empty() {
			return bv.Clone()
		}
	}
	panic("bitvec: no non-empty bitvec to export")
}

// Equal reports element-wise set equality.
func (a Array) Equal(other Array) bool {
	if len(a.vecs) != len(other.vecs) {
		return false
	}
	for i, bv := range a.vecs {
		if !bv.Equal(other.vecs[i]) {
			return false
		}
	}
	return true
}

// Strings renders every bitvec.
func (a Array) Strings() []string {
	out := make([]string, len(a.vecs))
	for i, bv := range a.vecs {
		out[i] = bv.String(false)
	}
	return out
}
