package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrEmptyBody = errors.New("request body is empty")

// DecodeStrict decodes a single JSON object and rejects fields the target
// struct does not declare.
func DecodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}
