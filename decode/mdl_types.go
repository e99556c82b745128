package decode

// mdlMagic is the four-byte signature at the start of every model file.
var mdlMagic = [4]byte{'I', 'D', 'S', 'T'}

// Supported model version range (§4.3). Versions outside this range are
// ErrInvalidModel; table strides below assume the v44-49 layout.
const (
	mdlVersionMin = 44
	mdlVersionMax = 49
)

// mdlHeader is the fixed-size header at the front of every model (§4.3).
// Only the fields this decoder's downstream tables need are kept as named
// struct fields; everything else (flex, IK, pose parameters, mouths,
// attachments) is read and discarded in header order so later offsets
// still line up — those systems are explicit Non-goals.
type mdlHeader struct {
	Version  int32
	Checksum int32
	Name     string

	NumBones  int32
	BoneIndex int32

	NumLocalAnim   int32
	LocalAnimIndex int32
	NumLocalSeq    int32
	LocalSeqIndex  int32

	NumTextures     int32
	TextureIndex    int32
	NumCDTextures   int32
	CDTextureIndex  int32
	NumSkinRef      int32
	NumSkinFamilies int32
	SkinIndex       int32

	NumBodyParts  int32
	BodyPartIndex int32

	Mass     float32
	Contents int32

	NumIncludeModels  int32
	IncludeModelIndex int32

	NumAnimBlocks      int32
	AnimBlockIndex     int32
	AnimBlockNameIndex int32
}

// Fixed byte strides for the v44-49 on-disk records this decoder reads
// directly (§4.3): one bone (216 bytes: name offset, parent, six bone
// controllers, position, quaternion, pose-to-bone 3x4, rot/pos scale), one
// texture reference (64 bytes), one body part (16 bytes), one model (148
// bytes), one mesh (116 bytes), one $includemodel entry (8 bytes), one
// animation block range (8 bytes), one animation descriptor (100 bytes),
// one sequence descriptor (212 bytes).

// mdlAnimBlock is one 8-byte (data-start, data-end) record describing a
// range inside the external .ani companion file (§6).
type mdlAnimBlock struct {
	DataStart int32
	DataEnd   int32
}
