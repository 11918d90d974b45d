package mock

import testify "github.com/stretchr/testify/mock"

// Anything .
const Anything = testify.Anything

// Mock .
type Mock = testify.Mock

// Call .
type Call = testify.Call

// Arguments .
type Arguments = testify.Arguments

// AnythingOfType .
var AnythingOfType = testify.AnythingOfType

// MatchedBy .
var MatchedBy = testify.MatchedBy

// Ret wraps the recorded return values of a mocked call.
type Ret struct {
	testify.Arguments
}

// NewRet .
func NewRet(args testify.Arguments) *Ret {
	return &Ret{args}
}

// Err .
func (r *Ret) Err(index int) (err error) {
	if obj := r.Get(index); obj != nil {
		err = obj.(error) //nolint
	}
	return
}

// Strings .
func (r *Ret) Strings(index int) (ss []string) {
	if obj := r.Get(index); obj != nil {
		ss = obj.([]string) //nolint
	}
	return
}
