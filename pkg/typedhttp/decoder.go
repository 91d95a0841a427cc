package typedhttp

import "encoding/json"

// Decoder converts a raw response body into a value of the target type.
// Callers supply one per type; the client stays format-agnostic.
type Decoder[T any] func(body []byte) (T, error)

// JSON returns a decoder unmarshalling the body as JSON into T.
func JSON[T any]() Decoder[T] {
	return func(body []byte) (T, error) {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return v, err
		}
		return v, nil
	}
}

// Bytes returns a pass-through decoder handing back the raw body.
func Bytes() Decoder[[]byte] {
	return func(body []byte) ([]byte, error) {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
}
