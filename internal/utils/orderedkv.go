package utils

import (
	"bytes"
	"encoding/json"
)

type KV[T any] struct {
	Key   string
	Value T
}

// OrderedMap marshals as a JSON object whose keys keep the slice order.
// Later duplicates are written as is; callers keep keys unique.
type OrderedMap[T any] []KV[T]

func (om OrderedMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range om {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (om OrderedMap[T]) Get(key string) (T, bool) {
	for _, kv := range om {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	var zero T
	return zero, false
}
