package models

import (
	"bytes"
	"math"
	"strconv"
)

// Float is a float64 that may legitimately be undefined (NaN). It encodes
// NaN and infinities as JSON null and decodes null back to NaN.
type Float float64

// NaN is the undefined Float.
func NaN() Float {
	return Float(math.NaN())
}

func (f Float) IsDefined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.IsDefined() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(f), 'f', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = NaN()
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
