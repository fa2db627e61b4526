package binio

import "math"

// Float16frombits expands an IEEE 754 half-precision bit pattern to
// float32. Denormals are normalized, infinities and NaN payloads are
// preserved. The conversion is exact: every half value has a float32
// representation.
func Float16frombits(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}

// Float16bits narrows a float32 to an IEEE 754 half-precision bit
// pattern, rounding to nearest even. Finite values outside the half
// range are written as a quiet NaN rather than saturating; infinities
// and NaN stay in their class, with NaN payloads truncated but kept
// nonzero.
func Float16bits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32((b>>23)&0xFF) - 127 + 15
	frac := b & 0x7FFFFF

	switch {
	case exp >= 0x1F:
		if b&0x7F800000 == 0x7F800000 {
			if frac == 0 {
				return sign | 0x7C00
			}
			m := uint16(frac >> 13)
			if m == 0 {
				m = 1
			}
			return sign | 0x7C00 | m
		}
		return sign | 0x7FFF
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		shift := uint32(14 - exp)
		m := frac >> shift
		rem := frac & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		return sign | uint16(m)
	default:
		m := uint32(exp)<<10 | frac>>13
		rem := frac & 0x1FFF
		if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
			m++
		}
		if m >= 0x7C00 {
			// rounding carried past the largest normal half
			return sign | 0x7FFF
		}
		return sign | uint16(m)
	}
}
