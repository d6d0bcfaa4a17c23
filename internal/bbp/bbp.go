// Package bbp implements the Bailey-Borwein-Plouffe digit-extraction series
// for hexadecimal digits of π.
package bbp

import "math"

const (
	// DigitsPerSum is how many hex digits are extracted from one evaluation of Sum
	// before it is recomputed at the next position.
	DigitsPerSum = 8

	// Epsilon terminates the tail of a series once its floating-point terms
	// no longer affect the fraction.
	Epsilon = 1e-17
)

// Sum evaluates 4·Σ(1,n) − 2·Σ(4,n) − Σ(5,n) − Σ(6,n). The fractional part of the
// result holds the hex digits of π starting at fractional position n.
func Sum(n int64) float64 {
	return 4*Series(1, n) - 2*Series(4, n) - Series(5, n) - Series(6, n)
}

// Series returns Σ_k 16^(n−k)/(8k+m). Terms with a positive exponent are reduced
// modulo 8k+m so only their fractional contribution is accumulated.
func Series(m, n int64) float64 {
	var sum float64
	d := m
	power := n

	for {
		var term float64
		if power > 0 {
			term = float64(HexExponentModulo(power, d)) / float64(d)
		} else {
			term = math.Pow(16, float64(power)) / float64(d)
			if term < Epsilon {
				break
			}
		}

		sum += term
		power--
		d += 8
	}

	return sum
}

// HexExponentModulo returns 16^p mod m using binary square-and-multiply,
// reducing after every multiplication. m must be positive.
func HexExponentModulo(p, m int64) int64 {
	if m == 1 {
		return 0
	}

	var power int64 = 1
	for power*2 <= p {
		power *= 2
	}

	mod := uint64(m)
	var result uint64 = 1

	for power > 0 {
		if p >= power {
			result = result * 16 % mod
			p -= power
		}

		power /= 2

		if power > 0 {
			result = result * result % mod
		}
	}

	return int64(result)
}

// NextDigit shifts one hex digit out of the running fraction s. It returns the
// digit in [0,15] and the new running value.
func NextDigit(s float64) (byte, float64) {
	s = 16 * (s - math.Floor(s))
	return byte(s), s
}
