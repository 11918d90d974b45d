package assert

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// NilErr .
func NilErr(t *testing.T, err error) {
	Nil(t, err, errors.GetReportableStackTrace(err))
}

// Err .
func Err(t *testing.T, err error) {
	NotNil(t, err, errors.GetReportableStackTrace(err))
}

// ErrIs fails unless err matches target through errors.Is, marks included.
func ErrIs(t *testing.T, err, target error) {
	require.Truef(t, errors.Is(err, target), "expected %v, got %+v", target, err)
}

// Nil .
func Nil(t *testing.T, obj any, msgAndArgs ...any) {
	require.Nil(t, obj, msgAndArgs...)
}

// NotNil .
func NotNil(t *testing.T, obj any, msgAndArgs ...any) {
	require.NotNil(t, obj, msgAndArgs...)
}

// True .
func True(t *testing.T, b bool, msgAndArgs ...any) {
	Equal(t, true, b, msgAndArgs...)
}

// False .
func False(t *testing.T, b bool, msgAndArgs ...any) {
	Equal(t, false, b, msgAndArgs...)
}

// Equal .
func Equal(t *testing.T, exp, act any, msgAndArgs ...any) {
	require.Equal(t, exp, act, msgAndArgs...)
}

// ElementsMatch .
func ElementsMatch(t *testing.T, exp, act any, msgAndArgs ...any) {
	require.ElementsMatch(t, exp, act, msgAndArgs...)
}

// Contains .
func Contains(t *testing.T, s, contains any, msgAndArgs ...any) {
	require.Contains(t, s, contains, msgAndArgs...)
}

// NotContains .
func NotContains(t *testing.T, s, contains any, msgAndArgs ...any) {
	require.NotContains(t, s, contains, msgAndArgs...)
}

// Len .
func Len(t *testing.T, obj any, length int, msgAndArgs ...any) {
	require.Len(t, obj, length, msgAndArgs...)
}

// Fail .
func Fail(t *testing.T, fmt string, args ...any) {
	require.Fail(t, fmt, args...)
}
