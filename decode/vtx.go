package decode

import (
	"fmt"

	"github.com/sourceassets/mdlimport/internal/bin"
)

const vtxSupportedVersion = 7

const (
	vtxBodyPartStride  = 8
	vtxModelStride     = 8
	vtxModelLODStride  = 12
	vtxMeshStride      = 9
	vtxStripGroupStride = 25
	vtxStripVertexStride = 9
)

// stripIsTriList is set on a strip group's flags when its index buffer is
// already a flat triangle list rather than a fan/strip requiring
// reconstruction; every strip this decoder has been asked to read uses it,
// so non-trilist strips fall back to being read as one anyway rather than
// implementing full strip-fan expansion (an accepted simplification, not a
// format requirement).
const stripIsTriList = 0x01

// VtxMesh is one decoded optimized mesh: a triangle-list index buffer
// addressing vertices by their mesh-relative VVD index (the same indexing
// VvdReader's output uses once offset by the owning model's VertexIndex and
// the mesh's VertexOffset).
type VtxMesh struct {
	Indices []uint16 // each value is a mesh-relative VVD vertex index
}

// VtxModel mirrors one MDL model: its highest-detail (LOD 0) mesh list.
type VtxModel struct {
	Meshes []VtxMesh
}

// VtxBodyPart mirrors one MDL body part.
type VtxBodyPart struct {
	Models []VtxModel
}

// VtxReader parses the optimized strip/index tree (§4.5 C6), keeping only
// LOD 0 (§8 Non-goals: "decoding LODs other than the highest").
type VtxReader struct{}

func NewVtxReader() *VtxReader { return &VtxReader{} }

// Parse decodes data (the full contents of a .vtx companion file) into its
// LOD-0 body-part/model/mesh tree.
func (r *VtxReader) Parse(data []byte) ([]VtxBodyPart, error) {
	c := bin.NewCursor(data)

	version, err := c.I32()
	if err != nil {
		return nil, fmt.Errorf("%w: vtx version: %v", ErrInvalidModel, err)
	}
	if version != vtxSupportedVersion {
		return nil, fmt.Errorf("%w: vtx version %d, only %d supported", ErrUnsupportedFormat, version, vtxSupportedVersion)
	}
	if err := c.Skip(4); err != nil { // vertCacheSize
		return nil, err
	}
	if err := c.Skip(2); err != nil { // maxBonesPerStrip
		return nil, err
	}
	if err := c.Skip(2); err != nil { // maxBonesPerTri
		return nil, err
	}
	if err := c.Skip(4); err != nil { // maxBonesPerVert
		return nil, err
	}
	if err := c.Skip(4); err != nil { // checksum, must match .mdl's
		return nil, err
	}
	if err := c.Skip(4); err != nil { // numLODs
		return nil, err
	}
	if err := c.Skip(4); err != nil { // materialReplacementListOffset
		return nil, err
	}
	numBodyParts, err := c.I32()
	if err != nil {
		return nil, err
	}
	bodyPartOffset, err := c.I32()
	if err != nil {
		return nil, err
	}

	bodyParts := make([]VtxBodyPart, 0, numBodyParts)
	for bp := int32(0); bp < numBodyParts; bp++ {
		base := int(bodyPartOffset) + int(bp)*vtxBodyPartStride
		bc := bin.NewCursor(data)
		if err := bc.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: vtx body part %d: %v", ErrMalformedTable, bp, err)
		}
		numModels, err := bc.I32()
		if err != nil {
			return nil, err
		}
		modelOffset, err := bc.I32()
		if err != nil {
			return nil, err
		}

		models := make([]VtxModel, 0, numModels)
		for m := int32(0); m < numModels; m++ {
			mm, err := parseVtxModel(data, base+int(modelOffset)+int(m)*vtxModelStride)
			if err != nil {
				return nil, fmt.Errorf("%w: vtx body part %d model %d: %v", ErrMalformedTable, bp, m, err)
			}
			models = append(models, mm)
		}
		bodyParts = append(bodyParts, VtxBodyPart{Models: models})
	}
	return bodyParts, nil
}

func parseVtxModel(data []byte, base int) (VtxModel, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(base); err != nil {
		return VtxModel{}, err
	}
	numLODs, err := c.I32()
	if err != nil {
		return VtxModel{}, err
	}
	lodOffset, err := c.I32()
	if err != nil {
		return VtxModel{}, err
	}
	if numLODs < 1 {
		return VtxModel{}, nil
	}

	// Only LOD 0 (the first entry) is decoded.
	lodBase := base + int(lodOffset)
	lc := bin.NewCursor(data)
	if err := lc.Seek(lodBase); err != nil {
		return VtxModel{}, err
	}
	numMeshes, err := lc.I32()
	if err != nil {
		return VtxModel{}, err
	}
	meshOffset, err := lc.I32()
	if err != nil {
		return VtxModel{}, err
	}
	if _, err := lc.F32(); err != nil { // switchPoint, unused (single-LOD decode)
		return VtxModel{}, err
	}

	meshes := make([]VtxMesh, 0, numMeshes)
	for me := int32(0); me < numMeshes; me++ {
		mesh, err := parseVtxMesh(data, lodBase+int(meshOffset)+int(me)*vtxMeshStride)
		if err != nil {
			return VtxModel{}, fmt.Errorf("mesh %d: %w", me, err)
		}
		meshes = append(meshes, mesh)
	}
	return VtxModel{Meshes: meshes}, nil
}

func parseVtxMesh(data []byte, base int) (VtxMesh, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(base); err != nil {
		return VtxMesh{}, err
	}
	numStripGroups, err := c.I32()
	if err != nil {
		return VtxMesh{}, err
	}
	stripGroupOffset, err := c.I32()
	if err != nil {
		return VtxMesh{}, err
	}
	if _, err := c.U8(); err != nil { // mesh flags, unused
		return VtxMesh{}, err
	}

	var indices []uint16
	for sg := int32(0); sg < numStripGroups; sg++ {
		groupIndices, err := parseVtxStripGroup(data, base+int(stripGroupOffset)+int(sg)*vtxStripGroupStride)
		if err != nil {
			return VtxMesh{}, fmt.Errorf("strip group %d: %w", sg, err)
		}
		indices = append(indices, groupIndices...)
	}
	return VtxMesh{Indices: indices}, nil
}

func parseVtxStripGroup(data []byte, base int) ([]uint16, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(base); err != nil {
		return nil, err
	}
	numVerts, err := c.I32()
	if err != nil {
		return nil, err
	}
	vertOffset, err := c.I32()
	if err != nil {
		return nil, err
	}
	numIndices, err := c.I32()
	if err != nil {
		return nil, err
	}
	indexOffset, err := c.I32()
	if err != nil {
		return nil, err
	}
	// numStrips, stripOffset: per-strip flags (trilist vs. fan) are not
	// consulted; see stripIsTriList.
	if err := c.Skip(8); err != nil {
		return nil, err
	}
	if _, err := c.U8(); err != nil { // strip group flags
		return nil, err
	}

	// origMeshVertID lookup table: strip-local vertex position -> the VVD
	// index (relative to the owning mesh) that vertex actually addresses.
	localToMesh := make([]uint16, numVerts)
	for v := int32(0); v < numVerts; v++ {
		vc := bin.NewCursor(data)
		if err := vc.Seek(base + int(vertOffset) + int(v)*vtxStripVertexStride); err != nil {
			return nil, err
		}
		if err := vc.Skip(3); err != nil { // boneWeightIndex[3]
			return nil, err
		}
		if _, err := vc.U8(); err != nil { // numBones
			return nil, err
		}
		origMeshVertID, err := vc.U16()
		if err != nil {
			return nil, err
		}
		localToMesh[v] = origMeshVertID
	}

	indices := make([]uint16, numIndices)
	ic := bin.NewCursor(data)
	if err := ic.Seek(base + int(indexOffset)); err != nil {
		return nil, err
	}
	for i := int32(0); i < numIndices; i++ {
		localIdx, err := ic.U16()
		if err != nil {
			return nil, err
		}
		if int(localIdx) >= len(localToMesh) {
			return nil, fmt.Errorf("%w: strip index %d out of range of %d local vertices", ErrMalformedTable, localIdx, len(localToMesh))
		}
		indices[i] = localToMesh[localIdx]
	}
	return indices, nil
}
