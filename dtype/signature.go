// File: dtype/signature.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dtype

// Signature is the ordered (inputs, outputs) tag lists derived from a
// block's process parameter list (spec.md §3 Type signature).
type Signature struct {
	Inputs  []Tag
	Outputs []Tag
}

// NumInputs returns the input port count.
func (s Signature) NumInputs() int { return len(s.Inputs) }

// NumOutputs returns the output port count.
func (s Signature) NumOutputs() int { return len(s.Outputs) }

// Equal reports whether two signatures carry the same ordered tag lists.
func (s Signature) Equal(o Signature) bool {
	if len(s.Inputs) != len(o.Inputs) || len(s.Outputs) != len(o.Outputs) {
		return false
	}
	for i := range s.Inputs {
		if s.Inputs[i] != o.Inputs[i] {
			return false
		}
	}
	for i := range s.Outputs {
		if s.Outputs[i] != o.Outputs[i] {
			return false
		}
	}
	return true
}
