package bsp

import "math"

func atan2f(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}
