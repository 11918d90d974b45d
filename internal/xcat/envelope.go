package xcat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

const (
	keyInfo      = "info"
	keyData      = "data"
	keyNode      = "node"
	keyErrorCode = "errorcode"
	keyError     = "error"
)

// Envelope is the normalized form of an xCAT REST response.
// The raw payload looks like
//
//	{"data": [{"info": [..]}, {"data": [..]}, {"errorcode": [..]}, {"error": [..]}]}
//
// and every key may show up several times.
type Envelope struct {
	Info      [][]string
	Data      [][]string
	Node      [][]string
	ErrorCode [][]string
	Error     [][]string
}

// DecodeEnvelope .
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, terrors.Mark(errors.Wrap(err, "response is not in JSON format"), terrors.ErrMalformedResponse)
	}

	blocks, ok := top[keyData]
	if !ok {
		return nil, terrors.Newf(terrors.ErrMalformedResponse, "response has no %q field", keyData)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(blocks, &items); err != nil {
		return nil, terrors.Mark(errors.Wrap(err, "response data is not a list of objects"), terrors.ErrMalformedResponse)
	}

	env := &Envelope{}
	for _, item := range items {
		for key, val := range item {
			var dst *[][]string
			switch key {
			case keyInfo:
				dst = &env.Info
			case keyData:
				dst = &env.Data
			case keyNode:
				dst = &env.Node
			case keyErrorCode:
				dst = &env.ErrorCode
			case keyError:
				dst = &env.Error
			default:
				continue
			}
			list, err := decodeList(val)
			if err != nil {
				return nil, terrors.Mark(errors.Wrapf(err, "decode %q", key), terrors.ErrMalformedResponse)
			}
			*dst = append(*dst, list)
		}
	}
	return env, nil
}

// decodeList flattens a JSON list into strings. Scalars keep their text, nested
// values are kept as compact JSON.
func decodeList(raw json.RawMessage) ([]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		// some replies carry a bare scalar instead of a one element list
		elems = []json.RawMessage{raw}
	}
	list := make([]string, 0, len(elems))
	for _, elem := range elems {
		var v any
		if err := json.Unmarshal(elem, &v); err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case string:
			list = append(list, x)
		case nil:
			list = append(list, "")
		case float64, bool:
			list = append(list, fmt.Sprint(x))
		default:
			list = append(list, string(elem))
		}
	}
	return list, nil
}

// Verify classifies the envelope of a request made with method.
// The checks run in order: error field, then (reads only) error code, then empty data.
func (e *Envelope) Verify(method string) error {
	if len(e.Error) > 0 && !e.hasWarning() {
		return terrors.Newf(terrors.ErrRequestFailure, "error returned from xCAT: %s", e.Errors())
	}
	if method != http.MethodGet {
		return nil
	}
	if code := e.Code(); len(code) > 0 && code != "0" {
		return terrors.Newf(terrors.ErrRequestFailure, "xCAT returned error code %s", code)
	}
	if len(e.FirstData()) < 1 {
		return terrors.Newf(terrors.ErrMalformedResponse, "xCAT returned no data")
	}
	return nil
}

func (e *Envelope) hasWarning() bool {
	for _, errs := range e.Error {
		for _, msg := range errs {
			if strings.Contains(msg, "Warning") {
				return true
			}
		}
	}
	return false
}

// FirstData returns the first data block, which is where xCAT puts table rows and
// command output.
func (e *Envelope) FirstData() []string {
	if len(e.Data) < 1 {
		return nil
	}
	return e.Data[0]
}

// Code returns the first error code, empty if there is none.
func (e *Envelope) Code() string {
	if len(e.ErrorCode) < 1 || len(e.ErrorCode[0]) < 1 {
		return ""
	}
	return e.ErrorCode[0][0]
}

// Output joins every data line.
func (e *Envelope) Output() string {
	var lines []string
	for _, block := range e.Data {
		lines = append(lines, block...)
	}
	return strings.Join(lines, "\n")
}

// Errors joins every error line.
func (e *Envelope) Errors() string {
	var lines []string
	for _, block := range e.Error {
		lines = append(lines, block...)
	}
	return strings.Join(lines, "; ")
}
