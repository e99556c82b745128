package decode

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/asset"
	"github.com/sourceassets/mdlimport/internal/bin"
)

// Per-bone animation section flags (§4.7).
const (
	animFlagRawPos  = 0x01
	animFlagRawRot  = 0x02
	animFlagAnimPos = 0x04
	animFlagAnimRot = 0x08
	animFlagDelta   = 0x10
	animFlagRawRot2 = 0x20
)

// boneSectionTerminator marks the end of a bone-section linked list.
const boneSectionTerminator = 0xFF

// AnimDecoder decodes one sequence's per-bone tagged-union stream into
// parent-local BoneTracks (§4.7 C8).
type AnimDecoder struct{}

func NewAnimDecoder() *AnimDecoder { return &AnimDecoder{} }

// Decode decodes anim.Data (already resolved to either the inline .mdl
// bytes or the matching .ani block) against bones, producing one BoneTrack
// per bone. Bones with no authored channel hold their Rest transform for
// every frame.
func (d *AnimDecoder) Decode(anim ModelAnim, bones []ModelBone) (asset.AnimationTrack, error) {
	numFrames := int(anim.NumFrames)
	if numFrames < 1 {
		numFrames = 1
	}

	tracks := make([]asset.BoneTrack, len(bones))
	for i, b := range bones {
		frames := make([]asset.Transform, numFrames)
		for f := range frames {
			frames[f] = asset.Transform{Position: b.Rest.Position, Rotation: b.Rest.Rotation}
		}
		tracks[i] = asset.BoneTrack{BoneIndex: int32(i), Frames: frames}
	}

	if len(anim.Data) == 0 {
		// No per-bone data at all (e.g. unresolved .ani companion): every
		// bone falls back to its rest pose for the whole clip.
		return asset.AnimationTrack{Name: anim.Name, FrameRate: anim.FPS, FrameCount: numFrames, Bones: tracks}, nil
	}

	seen := make(map[uint8]bool)
	headerPos := 0
	for {
		if headerPos+4 > len(anim.Data) {
			break
		}
		hc := bin.NewCursor(anim.Data)
		if err := hc.Seek(headerPos); err != nil {
			break
		}
		boneIdx, err := hc.U8()
		if err != nil {
			break
		}
		if boneIdx == boneSectionTerminator {
			break
		}
		flags, err := hc.U8()
		if err != nil {
			return asset.AnimationTrack{}, fmt.Errorf("%w: sequence %q: %v", ErrMalformedTable, anim.Name, err)
		}
		nextOffset, err := hc.U16()
		if err != nil {
			return asset.AnimationTrack{}, fmt.Errorf("%w: sequence %q: %v", ErrMalformedTable, anim.Name, err)
		}

		if seen[boneIdx] {
			return asset.AnimationTrack{}, fmt.Errorf("%w: sequence %q: duplicate bone index %d", ErrMalformedTable, anim.Name, boneIdx)
		}
		seen[boneIdx] = true

		if int(boneIdx) < len(bones) {
			frames, err := decodeBoneSection(anim.Data, headerPos, flags, bones[boneIdx], numFrames)
			if err != nil {
				// Malformed single-bone section: skip it, leave that
				// bone on its rest pose (§7 "skip smallest unit").
			} else {
				tracks[boneIdx].Frames = frames
			}
		}

		if nextOffset == 0 {
			break
		}
		headerPos += int(nextOffset)
	}

	return asset.AnimationTrack{Name: anim.Name, FrameRate: anim.FPS, FrameCount: numFrames, Bones: tracks}, nil
}

func decodeBoneSection(data []byte, headerPos int, flags uint8, bone ModelBone, numFrames int) ([]asset.Transform, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(headerPos + 4); err != nil {
		return nil, err
	}

	pos := bone.Rest.Position
	rot := bone.Rest.Rotation
	var posFrames, rotFrames []asset.Transform

	if flags&animFlagRawPos != 0 {
		hx, err := c.U16()
		if err != nil {
			return nil, err
		}
		hy, err := c.U16()
		if err != nil {
			return nil, err
		}
		hz, err := c.U16()
		if err != nil {
			return nil, err
		}
		pos = mgl32.Vec3{float16ToFloat32(hx), float16ToFloat32(hy), float16ToFloat32(hz)}
	}
	if flags&animFlagRawRot != 0 {
		// Rotation packed as 3x16 bits (48 total): the source annotates
		// this variant as TODO, falling back to the rest pose rather than
		// guessing at an undocumented encoding.
		if err := c.Skip(6); err != nil {
			return nil, err
		}
	}
	if flags&animFlagRawRot2 != 0 {
		packed, err := c.U32()
		if err != nil {
			return nil, err
		}
		packed2, err := c.U32()
		if err != nil {
			return nil, err
		}
		rot = unpackQuat64(uint64(packed) | uint64(packed2)<<32)
	}
	if flags&animFlagAnimPos != 0 {
		offX, err := c.U16()
		if err != nil {
			return nil, err
		}
		offY, err := c.U16()
		if err != nil {
			return nil, err
		}
		offZ, err := c.U16()
		if err != nil {
			return nil, err
		}
		xs, err := readRLEChannel(data, headerPos+int(offX), numFrames)
		if err != nil {
			return nil, err
		}
		ys, err := readRLEChannel(data, headerPos+int(offY), numFrames)
		if err != nil {
			return nil, err
		}
		zs, err := readRLEChannel(data, headerPos+int(offZ), numFrames)
		if err != nil {
			return nil, err
		}
		posFrames = make([]asset.Transform, numFrames)
		for f := 0; f < numFrames; f++ {
			decoded := mgl32.Vec3{xs[f] * bone.PosScale[0], ys[f] * bone.PosScale[1], zs[f] * bone.PosScale[2]}
			p := decoded
			if flags&animFlagDelta != 0 {
				p = pos.Add(decoded)
			}
			posFrames[f] = asset.Transform{Position: p}
		}
	}
	if flags&animFlagAnimRot != 0 {
		offX, err := c.U16()
		if err != nil {
			return nil, err
		}
		offY, err := c.U16()
		if err != nil {
			return nil, err
		}
		offZ, err := c.U16()
		if err != nil {
			return nil, err
		}
		rxs, err := readRLEChannel(data, headerPos+int(offX), numFrames)
		if err != nil {
			return nil, err
		}
		rys, err := readRLEChannel(data, headerPos+int(offY), numFrames)
		if err != nil {
			return nil, err
		}
		rzs, err := readRLEChannel(data, headerPos+int(offZ), numFrames)
		if err != nil {
			return nil, err
		}
		rotFrames = make([]asset.Transform, numFrames)
		for f := 0; f < numFrames; f++ {
			rx := rxs[f] * bone.RotScale[0]
			ry := rys[f] * bone.RotScale[1]
			rz := rzs[f] * bone.RotScale[2]
			q := mgl32.AnglesToQuat(rx, ry, rz, mgl32.ZYX)
			if flags&animFlagDelta != 0 {
				q = rot.Mul(q)
			}
			rotFrames[f] = asset.Transform{Rotation: q.Normalize()}
		}
	}

	out := make([]asset.Transform, numFrames)
	for f := 0; f < numFrames; f++ {
		p := pos
		r := rot
		if posFrames != nil {
			p = posFrames[f].Position
		}
		if rotFrames != nil {
			r = rotFrames[f].Rotation
		}
		out[f] = asset.Transform{Position: p, Rotation: r}
	}
	return out, nil
}

// readRLEChannel reads (valid,total) pairs starting at offset, each pair
// followed directly by its `valid` raw signed 16-bit samples, stopping once
// the accumulated total reaches numFrames, then expands them (§4.7).
func readRLEChannel(data []byte, offset, numFrames int) ([]float32, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(offset); err != nil {
		return nil, err
	}

	var pairs []animValuePair
	var raw []uint16
	total := 0
	for total < numFrames {
		valid, err := c.U8()
		if err != nil {
			return nil, err
		}
		t, err := c.U8()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, animValuePair{Valid: valid, Total: t})
		for i := 0; i < int(valid); i++ {
			v, err := c.U16()
			if err != nil {
				return nil, err
			}
			raw = append(raw, v)
		}
		total += int(t)
		if t == 0 {
			break // malformed but bounded: avoid spinning forever
		}
	}

	return decodeRLEChannel(pairs, raw, numFrames), nil
}
