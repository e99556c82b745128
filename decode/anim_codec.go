package decode

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// float16ToFloat32 decodes an IEEE-754 binary16 value, including
// denormals and the Inf/NaN saturation cases (§4.7 NEW: no ecosystem
// half-float decoder appears in the pack, so this is hand-written,
// grounded on deepteams-webp/internal/bitio's manual bit-shifting idiom
// for pulling fixed-width fields out of a byte run).
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF

	var bits uint32
	switch {
	case exp == 0 && frac == 0:
		bits = sign << 31
	case exp == 0: // subnormal
		// Normalize the fraction into a regular float32 exponent range.
		e := -14
		f := frac
		for f&0x400 == 0 {
			f <<= 1
			e--
		}
		f &= 0x3FF
		bits = (sign << 31) | uint32(int32(e+127)<<23) | (f << 13)
	case exp == 0x1F: // Inf saturates to ±65504 (largest finite half), NaN to 0
		if frac != 0 {
			return 0
		}
		bits = (sign << 31) | 0x477FE000
	default:
		bits = (sign << 31) | ((exp - 15 + 127) << 23) | (frac << 13)
	}
	return math.Float32frombits(bits)
}

// unpackQuat64 decodes a 64-bit packed quaternion using a 21:21:21:1 bit
// layout: three 21-bit signed-fixed-point components in [-1,1) and a
// trailing sign bit for the reconstructed w (§4.7). This is the same kind
// of fixed-bit-width field extraction WebP's Huffman-coded symbol packing
// uses, hence grounded the same way as float16ToFloat32.
func unpackQuat64(packed uint64) mgl32.Quat {
	const bits21 = 1 << 21
	const half21 = 1 << 20

	x := extractSigned21(uint32(packed & (bits21 - 1)))
	y := extractSigned21(uint32((packed >> 21) & (bits21 - 1)))
	z := extractSigned21(uint32((packed >> 42) & (bits21 - 1)))
	wNeg := (packed>>63)&0x1 != 0

	fx := float32(x) / half21
	fy := float32(y) / half21
	fz := float32(z) / half21

	wSq := 1 - fx*fx - fy*fy - fz*fz
	if wSq < 0 {
		wSq = 0
	}
	w := float32(math.Sqrt(float64(wSq)))
	if wNeg {
		w = -w
	}
	return mgl32.Quat{W: w, V: mgl32.Vec3{fx, fy, fz}}
}

func extractSigned21(v uint32) int32 {
	return int32(v) - (1 << 20)
}

// animValuePair is one (valid, total) run from an RLE-encoded animation
// channel (§4.7): `valid` explicit samples follow, and the last of them
// repeats until `total` frames have been accounted for.
type animValuePair struct {
	Valid uint8
	Total uint8
}

// decodeRLEChannel expands an RLE-encoded channel into exactly numFrames
// float32 samples, taking raw signed 16-bit values from rawValues (§4.7: "valid
// signed 16-bit values each multiplied by the channel scale" — the scale
// itself is applied by the caller, not here). If the stream runs out before
// numFrames are produced, the last decoded value (or 0 if none was ever
// decoded) pads the remainder — matching §4.7's documented behavior for a
// channel whose encoded run is shorter than the sequence.
func decodeRLEChannel(pairs []animValuePair, rawValues []uint16, numFrames int) []float32 {
	out := make([]float32, 0, numFrames)
	var last float32
	vi := 0

	for _, p := range pairs {
		for i := 0; i < int(p.Valid) && len(out) < numFrames; i++ {
			if vi >= len(rawValues) {
				break
			}
			last = float32(int16(rawValues[vi]))
			vi++
			out = append(out, last)
		}
		for i := int(p.Valid); i < int(p.Total) && len(out) < numFrames; i++ {
			out = append(out, last)
		}
		if len(out) >= numFrames {
			break
		}
	}
	for len(out) < numFrames {
		out = append(out, last)
	}
	return out[:numFrames]
}
