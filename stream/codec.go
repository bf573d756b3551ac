package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyPayload = errors.New("empty payload")

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode envelope: empty type")
	}
	if payload == nil {
		return nil, fmt.Errorf("encode %s: %w", t, ErrEmptyPayload)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{t, pb})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: empty message")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return e, nil
}

//DecodePayload unmarshals the envelope payload into a T
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.T)
	}
	err := json.Unmarshal(env.P, &out)
	return out, err
}
