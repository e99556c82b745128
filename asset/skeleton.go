// Package asset defines the neutral, host-agnostic description produced by
// the decode pipeline: skeletons, meshes, animations, and physics bodies.
// Nothing in this package knows about packages, archives, or any of the
// seven on-disk binary formats that feed it.
package asset

import "github.com/go-gl/mathgl/mgl32"

// Transform is a parent-local (or, once composed, world-space) rigid
// transform: a rotation followed by a translation. Scale is tracked
// separately on Bone where it matters (channel scaling for animation),
// since the decoder never needs to compose non-uniform scale into a
// transform chain.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// IdentityTransform returns the transform that leaves a point unchanged.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent()}
}

// Compose applies child as a local transform underneath t, i.e. computes
// t ∘ child in the sense of worldRest[i] = parent.Compose(bone.Rest).
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(child.Position)),
		Rotation: t.Rotation.Mul(child.Rotation).Normalize(),
	}
}

// Bone is a single joint in a skeleton. ParentIndex is always strictly less
// than the bone's own index (topological order), with -1 reserved for roots.
type Bone struct {
	Name string

	ParentIndex int32

	// Rest is the bone's parent-local rest transform, as decoded from MDL.
	Rest Transform

	// WorldRest is Rest composed with every ancestor's Rest. Computed once
	// by the Assembler and never recomputed; consumers must not mutate it.
	WorldRest Transform

	// RotScale and PosScale are the per-channel scale factors applied to
	// RLE-encoded animation deltas for this bone (§4.7 ANIMPOS/ANIMROT).
	RotScale mgl32.Vec3
	PosScale mgl32.Vec3

	// PoseToBone is the 3x4 row-major matrix used to map a vertex from
	// bind pose into this bone's local space; carried through unchanged
	// from MDL for host consumption (e.g. GPU skinning matrices).
	PoseToBone [12]float32
}

// Skeleton is an ordered, topologically-sorted bone hierarchy.
type Skeleton struct {
	Bones []Bone
}

// IndexOf returns the index of the bone with the given name, or -1.
func (s *Skeleton) IndexOf(name string) int {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// NearestAncestorWithBody walks parent indices starting at boneIndex
// (exclusive) until it finds a bone index present in hasBody, or returns -1
// if no such ancestor exists. Used by the Assembler to build the ragdoll
// joint graph (§4.8 step 8, §9 "back references in the physics joint graph").
func (s *Skeleton) NearestAncestorWithBody(boneIndex int32, hasBody map[int32]bool) int32 {
	if boneIndex < 0 || int(boneIndex) >= len(s.Bones) {
		return -1
	}
	cur := s.Bones[boneIndex].ParentIndex
	for cur >= 0 {
		if hasBody[cur] {
			return cur
		}
		cur = s.Bones[cur].ParentIndex
	}
	return -1
}
