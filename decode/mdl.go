package decode

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/internal/bin"
)

// ModelData is the parsed, still-format-shaped output of MdlReader: every
// table the Assembler needs, addressed by the same indices the on-disk
// format uses. It is not yet an asset.Asset — no vertex/animation data has
// been merged in yet, and bone transforms are still parent-local.
type ModelData struct {
	Name  string
	Bones []ModelBone

	TextureNames   []string
	TextureSearchPaths []string

	BodyParts []ModelBodyPart

	IncludeModels []string

	AnimBlocks []mdlAnimBlock
	AnimBlockName string

	Anims []ModelAnim
	Seqs  []ModelSeq
}

// ModelBone is a bone record with its MDL-order parent index and
// parent-local rest transform already composed from position+quaternion.
type ModelBone struct {
	Name        string
	Parent      int32
	Rest        struct {
		Position mgl32.Vec3
		Rotation mgl32.Quat
	}
	PoseToBone [12]float32
	RotScale   mgl32.Vec3
	PosScale   mgl32.Vec3
}

// ModelBodyPart mirrors the body-part/model/mesh tree (§4.3/§4.8), with
// Models ordered exactly as on disk. The Assembler keeps no running
// body-part or model vertex totals: it addresses the VVD array by each
// model's VertexIndex as read from disk plus the mesh's VertexOffset.
type ModelBodyPart struct {
	Name   string
	Models []ModelModel
}

type ModelModel struct {
	Name        string
	VertexIndex int32 // base index of this model's vertices within the VVD array
	Meshes      []ModelMesh
}

type ModelMesh struct {
	Material     int32
	VertexOffset int32 // offset from the owning model's VertexIndex
	NumVertices  int32
}

// ModelAnim is a parsed animation descriptor, carrying enough to locate its
// encoded per-bone data either inline in the .mdl or in a numbered .ani
// block (§6).
type ModelAnim struct {
	Name      string
	FPS       float32
	NumFrames int32
	AnimBlock int32
	// Data holds the per-bone tagged-union stream AnimDecoder reads. For an
	// inline animation (AnimBlock == 0) it runs from the descriptor's start
	// plus its anim index to the end of the .mdl; for a block animation it
	// is nil here and the Decoder sets it to the resolved .ani block range.
	Data []byte
}

// ModelSeq is a parsed sequence descriptor.
type ModelSeq struct {
	Name     string
	AnimName string // name of the single underlying ModelAnim this sequence plays
}

// MdlReader parses a model's header and tables into a ModelData (§4.3 C4).
type MdlReader struct{}

func NewMdlReader() *MdlReader { return &MdlReader{} }

// Parse decodes data (the full contents of a .mdl file) into a ModelData.
func (r *MdlReader) Parse(data []byte) (*ModelData, error) {
	c := bin.NewCursor(data)

	magic, err := c.Bytes(4)
	if err != nil || string(magic) != string(mdlMagic[:]) {
		return nil, fmt.Errorf("%w: bad model signature", ErrInvalidModel)
	}

	hdr, err := parseMdlHeader(c)
	if err != nil {
		return nil, err
	}
	if hdr.Version < mdlVersionMin || hdr.Version > mdlVersionMax {
		return nil, fmt.Errorf("%w: model version %d outside supported range [%d,%d]", ErrInvalidModel, hdr.Version, mdlVersionMin, mdlVersionMax)
	}

	bones, err := readBones(data, hdr)
	if err != nil {
		return nil, err
	}
	textures, err := readTextureNames(data, hdr)
	if err != nil {
		return nil, err
	}
	searchPaths, err := readCDTextures(data, hdr)
	if err != nil {
		return nil, err
	}
	bodyParts, err := readBodyParts(data, hdr)
	if err != nil {
		return nil, err
	}
	includeModels, err := readIncludeModels(data, hdr)
	if err != nil {
		return nil, err
	}
	animBlocks, err := readAnimBlocks(data, hdr)
	if err != nil {
		return nil, err
	}
	anims, err := readAnimDescs(data, hdr)
	if err != nil {
		return nil, err
	}
	seqs, err := readSeqDescs(data, hdr, anims)
	if err != nil {
		return nil, err
	}

	var blockName string
	if hdr.AnimBlockNameIndex != 0 {
		blockName, _ = bin.NewCursor(data).StringAt(int(hdr.AnimBlockNameIndex))
	}

	return &ModelData{
		Name:               hdr.Name,
		Bones:              bones,
		TextureNames:       textures,
		TextureSearchPaths: searchPaths,
		BodyParts:          bodyParts,
		IncludeModels:      includeModels,
		AnimBlocks:         animBlocks,
		AnimBlockName:      blockName,
		Anims:              anims,
		Seqs:               seqs,
	}, nil
}

func parseMdlHeader(c *bin.Cursor) (mdlHeader, error) {
	var h mdlHeader
	var err error

	if h.Version, err = c.I32(); err != nil {
		return h, fmt.Errorf("%w: version: %v", ErrInvalidModel, err)
	}
	if h.Checksum, err = c.I32(); err != nil {
		return h, fmt.Errorf("%w: checksum: %v", ErrInvalidModel, err)
	}
	nameBytes, err := c.Bytes(64)
	if err != nil {
		return h, fmt.Errorf("%w: name: %v", ErrInvalidModel, err)
	}
	h.Name = cstr(nameBytes)

	if err := c.Skip(4); err != nil { // length
		return h, err
	}
	if err := c.Skip(4 * 3 * 6); err != nil { // eyeposition, illumposition, hull_min/max, view_bbmin/max
		return h, err
	}
	if err := c.Skip(4); err != nil { // flags
		return h, err
	}

	if h.NumBones, err = c.I32(); err != nil {
		return h, err
	}
	if h.BoneIndex, err = c.I32(); err != nil {
		return h, err
	}
	if err := c.Skip(8); err != nil { // bonecontrollers
		return h, err
	}
	if err := c.Skip(8); err != nil { // hitboxsets
		return h, err
	}
	if h.NumLocalAnim, err = c.I32(); err != nil {
		return h, err
	}
	if h.LocalAnimIndex, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumLocalSeq, err = c.I32(); err != nil {
		return h, err
	}
	if h.LocalSeqIndex, err = c.I32(); err != nil {
		return h, err
	}
	if err := c.Skip(8); err != nil { // activitylistversion, eventsindexed
		return h, err
	}
	if h.NumTextures, err = c.I32(); err != nil {
		return h, err
	}
	if h.TextureIndex, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumCDTextures, err = c.I32(); err != nil {
		return h, err
	}
	if h.CDTextureIndex, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumSkinRef, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumSkinFamilies, err = c.I32(); err != nil {
		return h, err
	}
	if h.SkinIndex, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumBodyParts, err = c.I32(); err != nil {
		return h, err
	}
	if h.BodyPartIndex, err = c.I32(); err != nil {
		return h, err
	}
	if err := c.Skip(8); err != nil { // local attachments
		return h, err
	}
	if err := c.Skip(12); err != nil { // local nodes, local node name index
		return h, err
	}
	if err := c.Skip(8); err != nil { // flex desc
		return h, err
	}
	if err := c.Skip(8); err != nil { // flex controllers
		return h, err
	}
	if err := c.Skip(8); err != nil { // flex rules
		return h, err
	}
	if err := c.Skip(8); err != nil { // ik chains
		return h, err
	}
	if err := c.Skip(8); err != nil { // mouths
		return h, err
	}
	if err := c.Skip(8); err != nil { // local pose parameters
		return h, err
	}
	if err := c.Skip(4); err != nil { // surfacepropindex
		return h, err
	}
	if err := c.Skip(8); err != nil { // keyvalue index, size
		return h, err
	}
	if err := c.Skip(8); err != nil { // local ik autoplay locks
		return h, err
	}
	if h.Mass, err = c.F32(); err != nil {
		return h, err
	}
	if h.Contents, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumIncludeModels, err = c.I32(); err != nil {
		return h, err
	}
	if h.IncludeModelIndex, err = c.I32(); err != nil {
		return h, err
	}
	if err := c.Skip(4); err != nil { // virtual model pointer (runtime-only, zero on disk)
		return h, err
	}
	if h.AnimBlockNameIndex, err = c.I32(); err != nil {
		return h, err
	}
	if h.NumAnimBlocks, err = c.I32(); err != nil {
		return h, err
	}
	if h.AnimBlockIndex, err = c.I32(); err != nil {
		return h, err
	}

	return h, nil
}

func cstr(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

const (
	mdlBoneStride    = 216
	mdlTextureStride = 64
	mdlBodyPartStride = 16
	mdlModelStride    = 148
	mdlMeshStride     = 116
	mdlIncludeModelStride = 8
	mdlAnimBlockStride    = 8
	mdlAnimDescStride     = 100
	mdlSeqDescStride      = 212
)

func readBones(data []byte, hdr mdlHeader) ([]ModelBone, error) {
	bones := make([]ModelBone, 0, hdr.NumBones)
	for i := int32(0); i < hdr.NumBones; i++ {
		base := int(hdr.BoneIndex) + int(i)*mdlBoneStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: bone %d: %v", ErrMalformedTable, i, err)
		}
		nameOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		name, err := bin.NewCursor(data).StringAt(base + int(nameOff))
		if err != nil {
			return nil, fmt.Errorf("%w: bone %d name: %v", ErrMalformedTable, i, err)
		}
		parent, err := c.I32()
		if err != nil {
			return nil, err
		}
		if err := c.Skip(6 * 4); err != nil { // bone controllers
			return nil, err
		}
		px, py, pz, err := c.Vec3()
		if err != nil {
			return nil, err
		}
		qx, qy, qz, qw, err := c.Vec4()
		if err != nil {
			return nil, err
		}

		var poseToBone [12]float32
		for j := 0; j < 12; j++ {
			poseToBone[j], err = c.F32()
			if err != nil {
				return nil, err
			}
		}
		rsx, rsy, rsz, err := c.Vec3()
		if err != nil {
			return nil, err
		}
		psx, psy, psz, err := c.Vec3()
		if err != nil {
			return nil, err
		}

		if parent >= i {
			return nil, fmt.Errorf("%w: bone %d parent index %d not strictly less than its own", ErrMalformedTable, i, parent)
		}

		b := ModelBone{
			Name:       name,
			Parent:     parent,
			PoseToBone: poseToBone,
			RotScale:   mgl32.Vec3{rsx, rsy, rsz},
			PosScale:   mgl32.Vec3{psx, psy, psz},
		}
		b.Rest.Position = mgl32.Vec3{px, py, pz}
		b.Rest.Rotation = mgl32.Quat{W: qw, V: mgl32.Vec3{qx, qy, qz}}
		bones = append(bones, b)
	}
	return bones, nil
}

func readTextureNames(data []byte, hdr mdlHeader) ([]string, error) {
	names := make([]string, 0, hdr.NumTextures)
	for i := int32(0); i < hdr.NumTextures; i++ {
		base := int(hdr.TextureIndex) + int(i)*mdlTextureStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: texture %d: %v", ErrMalformedTable, i, err)
		}
		nameOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		name, err := bin.NewCursor(data).StringAt(base + int(nameOff))
		if err != nil {
			return nil, fmt.Errorf("%w: texture %d name: %v", ErrMalformedTable, i, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func readCDTextures(data []byte, hdr mdlHeader) ([]string, error) {
	paths := make([]string, 0, hdr.NumCDTextures)
	for i := int32(0); i < hdr.NumCDTextures; i++ {
		c := bin.NewCursor(data)
		off := int(hdr.CDTextureIndex) + int(i)*4
		if err := c.Seek(off); err != nil {
			return nil, fmt.Errorf("%w: cd texture %d: %v", ErrMalformedTable, i, err)
		}
		pathOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		path, err := bin.NewCursor(data).StringAt(int(pathOff))
		if err != nil {
			return nil, fmt.Errorf("%w: cd texture %d path: %v", ErrMalformedTable, i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func readBodyParts(data []byte, hdr mdlHeader) ([]ModelBodyPart, error) {
	parts := make([]ModelBodyPart, 0, hdr.NumBodyParts)
	for i := int32(0); i < hdr.NumBodyParts; i++ {
		base := int(hdr.BodyPartIndex) + int(i)*mdlBodyPartStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: body part %d: %v", ErrMalformedTable, i, err)
		}
		nameOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		numModels, err := c.I32()
		if err != nil {
			return nil, err
		}
		if err := c.Skip(4); err != nil { // base (LOD skin selector, unused)
			return nil, err
		}
		modelIndex, err := c.I32()
		if err != nil {
			return nil, err
		}
		name, err := bin.NewCursor(data).StringAt(base + int(nameOff))
		if err != nil {
			return nil, fmt.Errorf("%w: body part %d name: %v", ErrMalformedTable, i, err)
		}

		models := make([]ModelModel, 0, numModels)
		for m := int32(0); m < numModels; m++ {
			mBase := base + int(modelIndex) + int(m)*mdlModelStride
			models = append(models, ModelModel{})
			mm, err := readModel(data, mBase)
			if err != nil {
				return nil, fmt.Errorf("%w: body part %d model %d: %v", ErrMalformedTable, i, m, err)
			}
			models[len(models)-1] = mm
		}

		parts = append(parts, ModelBodyPart{Name: name, Models: models})
	}
	return parts, nil
}

func readModel(data []byte, base int) (ModelModel, error) {
	c := bin.NewCursor(data)
	if err := c.Seek(base); err != nil {
		return ModelModel{}, err
	}
	nameBytes, err := c.Bytes(64)
	if err != nil {
		return ModelModel{}, err
	}
	if err := c.Skip(4); err != nil { // type
		return ModelModel{}, err
	}
	if err := c.Skip(4); err != nil { // bounding radius
		return ModelModel{}, err
	}
	numMeshes, err := c.I32()
	if err != nil {
		return ModelModel{}, err
	}
	meshIndex, err := c.I32()
	if err != nil {
		return ModelModel{}, err
	}
	if err := c.Skip(4); err != nil { // numvertices (redundant with the per-mesh counts)
		return ModelModel{}, err
	}
	vertexIndex, err := c.I32()
	if err != nil {
		return ModelModel{}, err
	}

	meshes := make([]ModelMesh, 0, numMeshes)
	for m := int32(0); m < numMeshes; m++ {
		mBase := base + int(meshIndex) + int(m)*mdlMeshStride
		mc := bin.NewCursor(data)
		if err := mc.Seek(mBase); err != nil {
			return ModelModel{}, err
		}
		material, err := mc.I32()
		if err != nil {
			return ModelModel{}, err
		}
		if err := mc.Skip(4); err != nil { // model index (back-pointer, unused)
			return ModelModel{}, err
		}
		meshNumVertices, err := mc.I32()
		if err != nil {
			return ModelModel{}, err
		}
		vertexOffset, err := mc.I32()
		if err != nil {
			return ModelModel{}, err
		}
		meshes = append(meshes, ModelMesh{Material: material, VertexOffset: vertexOffset, NumVertices: meshNumVertices})
	}

	return ModelModel{Name: cstr(nameBytes), VertexIndex: vertexIndex, Meshes: meshes}, nil
}

func readIncludeModels(data []byte, hdr mdlHeader) ([]string, error) {
	names := make([]string, 0, hdr.NumIncludeModels)
	for i := int32(0); i < hdr.NumIncludeModels; i++ {
		base := int(hdr.IncludeModelIndex) + int(i)*mdlIncludeModelStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: include model %d: %v", ErrMalformedTable, i, err)
		}
		if err := c.Skip(4); err != nil { // label offset, unused
			return nil, err
		}
		nameOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		name, err := bin.NewCursor(data).StringAt(base + int(nameOff))
		if err != nil {
			return nil, fmt.Errorf("%w: include model %d name: %v", ErrMalformedTable, i, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func readAnimBlocks(data []byte, hdr mdlHeader) ([]mdlAnimBlock, error) {
	blocks := make([]mdlAnimBlock, 0, hdr.NumAnimBlocks)
	for i := int32(0); i < hdr.NumAnimBlocks; i++ {
		base := int(hdr.AnimBlockIndex) + int(i)*mdlAnimBlockStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: anim block %d: %v", ErrMalformedTable, i, err)
		}
		start, err := c.I32()
		if err != nil {
			return nil, err
		}
		end, err := c.I32()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, mdlAnimBlock{DataStart: start, DataEnd: end})
	}
	return blocks, nil
}

func readAnimDescs(data []byte, hdr mdlHeader) ([]ModelAnim, error) {
	anims := make([]ModelAnim, 0, hdr.NumLocalAnim)
	for i := int32(0); i < hdr.NumLocalAnim; i++ {
		base := int(hdr.LocalAnimIndex) + int(i)*mdlAnimDescStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: anim %d: %v", ErrMalformedTable, i, err)
		}
		if err := c.Skip(4); err != nil { // base header index (back-pointer, unused)
			return nil, err
		}
		nameOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		fps, err := c.F32()
		if err != nil {
			return nil, err
		}
		if err := c.Skip(4); err != nil { // flags
			return nil, err
		}
		numFrames, err := c.I32()
		if err != nil {
			return nil, err
		}
		// movement/IK rule/autolayer/local hierarchy sub-tables are
		// explicit Non-goals; skip to reach animblock/animindex, which sit
		// near the end of the v44-49 descriptor.
		if err := c.Seek(base + mdlAnimDescStride - 8); err != nil {
			return nil, err
		}
		animBlock, err := c.I32()
		if err != nil {
			return nil, err
		}
		animIndex, err := c.I32()
		if err != nil {
			return nil, err
		}

		name, err := bin.NewCursor(data).StringAt(base + int(nameOff))
		if err != nil {
			return nil, fmt.Errorf("%w: anim %d name: %v", ErrMalformedTable, i, err)
		}

		var inlineData []byte
		if animBlock == 0 {
			// Data lives inline in the .mdl, animIndex bytes from this descriptor's start.
			start := base + int(animIndex)
			if start >= 0 && start < len(data) {
				inlineData = data[start:]
			}
		}

		anims = append(anims, ModelAnim{
			Name:      name,
			FPS:       fps,
			NumFrames: numFrames,
			AnimBlock: animBlock,
			Data:      inlineData,
		})
	}
	return anims, nil
}

func readSeqDescs(data []byte, hdr mdlHeader, anims []ModelAnim) ([]ModelSeq, error) {
	seqs := make([]ModelSeq, 0, hdr.NumLocalSeq)
	for i := int32(0); i < hdr.NumLocalSeq; i++ {
		base := int(hdr.LocalSeqIndex) + int(i)*mdlSeqDescStride
		c := bin.NewCursor(data)
		if err := c.Seek(base); err != nil {
			return nil, fmt.Errorf("%w: sequence %d: %v", ErrMalformedTable, i, err)
		}
		if err := c.Skip(4); err != nil { // base header index
			return nil, err
		}
		labelOff, err := c.I32()
		if err != nil {
			return nil, err
		}
		label, err := bin.NewCursor(data).StringAt(base + int(labelOff))
		if err != nil {
			return nil, fmt.Errorf("%w: sequence %d label: %v", ErrMalformedTable, i, err)
		}

		// numblends/animindexindex sit a fixed distance from the start of
		// this descriptor in the v44-49 layout; blending across multiple
		// underlying animations is an explicit Non-goal (only anim[0] of
		// each sequence is emitted).
		if err := c.Seek(base + mdlSeqDescStride - 8); err != nil {
			return nil, err
		}
		numBlends, err := c.I32()
		if err != nil {
			return nil, err
		}
		animIndexIndex, err := c.I32()
		if err != nil {
			return nil, err
		}

		var animName string
		if numBlends > 0 {
			ic := bin.NewCursor(data)
			if err := ic.Seek(base + int(animIndexIndex)); err == nil {
				if idx, err := ic.I16(); err == nil && int(idx) < len(anims) {
					animName = anims[idx].Name
				}
			}
		}

		seqs = append(seqs, ModelSeq{Name: label, AnimName: animName})
	}
	return seqs, nil
}
