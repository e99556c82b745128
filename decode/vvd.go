package decode

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/internal/bin"
)

var vvdMagic = [4]byte{'I', 'D', 'S', 'V'}

const vvdSupportedVersion = 4

const (
	vvdFixupStride = 12
	vvdVertexStride = 48
	vvdMaxLODs      = 8
)

// VvdVertex is one decoded vertex-pool entry (§4.4), still in model space
// and still addressed by LOD-0 index — bone-weight quantization to u8 and
// merging with VTX strip data happens later, in the Assembler.
type VvdVertex struct {
	BoneWeights [3]float32
	BoneIndices [3]int8
	NumBones    int8
	Position    mgl32.Vec3
	Normal      mgl32.Vec3
	UV          mgl32.Vec2
}

// VvdReader parses a vertex file (VVD) into its canonical LOD-0 vertex
// array, applying the fix-up table (§4.4 C5).
type VvdReader struct{}

func NewVvdReader() *VvdReader { return &VvdReader{} }

// Parse decodes data (the full contents of a .vvd file) into the
// fix-up-applied LOD-0 vertex array.
func (r *VvdReader) Parse(data []byte) ([]VvdVertex, error) {
	c := bin.NewCursor(data)

	magic, err := c.Bytes(4)
	if err != nil || string(magic) != string(vvdMagic[:]) {
		return nil, fmt.Errorf("%w: bad vertex file signature", ErrInvalidModel)
	}
	version, err := c.I32()
	if err != nil {
		return nil, fmt.Errorf("%w: vvd version: %v", ErrInvalidModel, err)
	}
	if version != vvdSupportedVersion {
		return nil, fmt.Errorf("%w: vertex file version %d, only %d supported", ErrUnsupportedFormat, version, vvdSupportedVersion)
	}
	if err := c.Skip(4); err != nil { // checksum, must match the .mdl's but irrelevant to decode
		return nil, err
	}
	numLODs, err := c.I32()
	if err != nil {
		return nil, err
	}
	numLODVertices := make([]int32, vvdMaxLODs)
	for i := 0; i < vvdMaxLODs; i++ {
		numLODVertices[i], err = c.I32()
		if err != nil {
			return nil, err
		}
	}
	numFixups, err := c.I32()
	if err != nil {
		return nil, err
	}
	fixupTableStart, err := c.I32()
	if err != nil {
		return nil, err
	}
	vertexDataStart, err := c.I32()
	if err != nil {
		return nil, err
	}
	if _, err := c.I32(); err != nil { // tangentDataStart, unused: tangents recomputed by hosts as needed
		return nil, err
	}

	if numLODs < 1 || int(numLODs) > vvdMaxLODs {
		return nil, fmt.Errorf("%w: vertex file reports %d LODs", ErrMalformedTable, numLODs)
	}

	readVertex := func(base int) (VvdVertex, error) {
		vc := bin.NewCursor(data)
		if err := vc.Seek(base); err != nil {
			return VvdVertex{}, err
		}
		var v VvdVertex
		for i := 0; i < 3; i++ {
			v.BoneWeights[i], err = vc.F32()
			if err != nil {
				return v, err
			}
		}
		for i := 0; i < 3; i++ {
			b, err := vc.I8()
			if err != nil {
				return v, err
			}
			v.BoneIndices[i] = b
		}
		v.NumBones, err = vc.I8()
		if err != nil {
			return v, err
		}
		px, py, pz, err := vc.Vec3()
		if err != nil {
			return v, err
		}
		v.Position = mgl32.Vec3{px, py, pz}
		nx, ny, nz, err := vc.Vec3()
		if err != nil {
			return v, err
		}
		v.Normal = mgl32.Vec3{nx, ny, nz}
		u, w, err := vc.Vec2()
		if err != nil {
			return v, err
		}
		v.UV = mgl32.Vec2{u, w}
		return v, nil
	}

	if numFixups == 0 {
		// No fix-up table: the pool is already LOD-0-ordered end to end.
		total := int(numLODVertices[0])
		out := make([]VvdVertex, 0, total)
		for i := 0; i < total; i++ {
			v, err := readVertex(int(vertexDataStart) + i*vvdVertexStride)
			if err != nil {
				return nil, fmt.Errorf("%w: vertex %d: %v", ErrMalformedTable, i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}

	fc := bin.NewCursor(data)
	if err := fc.Seek(int(fixupTableStart)); err != nil {
		return nil, fmt.Errorf("%w: fixup table: %v", ErrMalformedTable, err)
	}

	var out []VvdVertex
	for i := int32(0); i < numFixups; i++ {
		lod, err := fc.I32()
		if err != nil {
			return nil, fmt.Errorf("%w: fixup %d: %v", ErrMalformedTable, i, err)
		}
		sourceVertexID, err := fc.I32()
		if err != nil {
			return nil, err
		}
		numVertices, err := fc.I32()
		if err != nil {
			return nil, err
		}
		if lod < 0 {
			// Negative lod marks an unused fix-up slot; every lod >= 0
			// entry contributes to the canonical array this decoder emits.
			continue
		}
		for v := int32(0); v < numVertices; v++ {
			base := int(vertexDataStart) + int(sourceVertexID+v)*vvdVertexStride
			vert, err := readVertex(base)
			if err != nil {
				return nil, fmt.Errorf("%w: fixup %d vertex %d: %v", ErrMalformedTable, i, v, err)
			}
			out = append(out, vert)
		}
	}
	return out, nil
}
