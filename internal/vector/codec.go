package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeVector converts a float32 slice to bytes using little-endian encoding
func EncodeVector(vec []float32) ([]byte, error) {
	if vec == nil {
		return nil, fmt.Errorf("cannot encode nil vector")
	}

	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, int32(len(vec))); err != nil {
		return nil, fmt.Errorf("failed to encode vector length: %w", err)
	}

	for _, val := range vec {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("failed to encode vector value: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeVector converts bytes back to a float32 slice
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vector payload too short: %d bytes", len(data))
	}

	buf := bytes.NewReader(data)

	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to decode vector length: %w", err)
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid vector length: %d", length)
	}
	if length == 0 {
		return []float32{}, nil
	}
	if buf.Len() < int(length)*4 {
		return nil, fmt.Errorf("vector payload truncated: want %d floats", length)
	}

	vec := make([]float32, length)
	for i := int32(0); i < length; i++ {
		if err := binary.Read(buf, binary.LittleEndian, &vec[i]); err != nil {
			return nil, fmt.Errorf("failed to decode vector value at index %d: %w", i, err)
		}
	}

	return vec, nil
}
