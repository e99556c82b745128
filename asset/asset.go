package asset

import "github.com/go-gl/mathgl/mgl32"

// SkinWeight is one bone influence on a vertex. Weight is quantized to a
// byte 0-255 by the Assembler; the four influences on a Vertex always sum
// to exactly 255 (§8 invariant "skin weights sum to 255").
type SkinWeight struct {
	BoneIndex uint8
	Weight    uint8
}

// Vertex is a single skinned vertex in a FinalMesh, taken from the VVD
// array at the index the Assembler computes from the model's VertexIndex,
// the mesh's VertexOffset and the strip-local vertex remap (§4.8).
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2

	// Weights holds up to four influences; unused slots are zero-weight and
	// point at bone 0, matching the source format's fixed four-bone layout.
	Weights [4]SkinWeight
}

// Material describes one decoded texture, already expanded to an RGBA8888
// buffer. Pixels is row-major, top-to-bottom, 4 bytes per texel; the host
// owns any GPU upload.
type Material struct {
	Name   string
	Width  int
	Height int
	Pixels []byte
}

// FinalMesh is one fully assembled renderable mesh: an absolute-indexed
// vertex buffer (deduplicated across its strip groups) and a triangle-list
// index buffer with Source-engine winding already flipped to the
// right-handed convention the rest of this package assumes (§4.8 step 5).
type FinalMesh struct {
	Name         string
	MaterialIndex int
	Vertices     []Vertex
	Indices      []uint32
}

// PhysBody is one convex-hull (or AABB-substitute) collision body, attached
// to a bone by index.
type PhysBody struct {
	BoneIndex int32
	Name      string

	// Hulls holds one or more convex hulls in bone-local space, already
	// converted from meters to inches (§4.6, ×39.37).
	Hulls [][]mgl32.Vec3

	Mass float32
}

// PhysJoint connects two physics bodies by index into Asset.Physics,
// carrying the swing/twist limits parsed from the PHY key/value text block
// and the parent/child-local frames the joint is anchored at (§4.8 step 8).
type PhysJoint struct {
	ParentBody int
	ChildBody  int

	// Frame1 is the joint's anchor in the parent body's local space: the
	// child's world-rest pose expressed relative to the parent's. Frame2 is
	// always identity, since the joint is defined entirely in terms of the
	// child's rest pose relative to the parent.
	Frame1 Transform
	Frame2 Transform

	// SwingLimitDeg is the single scalar cone-swing limit; TwistLimitDeg is
	// the [min,max] twist range about the joint's primary axis.
	SwingLimitDeg float32
	TwistLimitDeg [2]float32
}

// Asset is the root of the decode pipeline's output (§3). Skeleton holds
// every bone the model declares. Meshes may be empty when the model has no
// body parts or every mesh was skipped during assembly; Animations and
// Physics may be empty too.
type Asset struct {
	Name string

	Skeleton   Skeleton
	Meshes     []FinalMesh
	Materials  []Material
	Animations []AnimationTrack
	Physics    []PhysBody
	Joints     []PhysJoint

	// Placeholder is set when decode failed past the point of no return and
	// the Decoder substituted the fixed magenta-cube asset (§7 "PLACEHOLDER
	// state"). Callers that care about partial-failure telemetry can check
	// this instead of treating every returned Asset as fully faithful.
	Placeholder bool
}
