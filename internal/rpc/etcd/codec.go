package etcd

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/openstack-archive/networking-zvm/pkg/terrors"
)

func encode(v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "")
	}
	return string(buf), nil
}

// decode is lenient on scalar types, the control plane writes ids as numbers
// or strings and flags as bools or strings.
func decode(data []byte, v any) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return terrors.Mark(errors.Wrap(err, "payload is not a JSON object"), terrors.ErrMalformedResponse)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := dec.Decode(raw); err != nil {
		return terrors.Mark(errors.Wrap(err, "decode payload"), terrors.ErrInvalidData)
	}
	return nil
}
