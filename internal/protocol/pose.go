package protocol

import "math"

// Pose components travel as fixed-point integers: each coordinate and the
// heading are multiplied by 10^precision and truncated toward zero. The
// sending side rounds displacement deltas before accumulation; the wire cast
// here always truncates. Both ends must agree on the precision.

func QuantFactor(precision int) float64 {
	return math.Pow(10, float64(precision))
}

func QuantizePos(v float64, precision int) int64 {
	return int64(v * QuantFactor(precision))
}

func DequantizePos(v int64, precision int) float64 {
	return float64(v) / QuantFactor(precision)
}

// Num coerces a routed update argument to float64. JSON decoding turns all
// numbers into float64; in-process routing may keep them as int or int64.
func Num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Chan coerces a routed update argument to a client channel id.
func Chan(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}
