package decode

import (
	"fmt"
	"math"

	"github.com/sourceassets/mdlimport/asset"
	"github.com/sourceassets/mdlimport/common"
)

// Assembler merges the per-component intermediate results (MDL tables, VVD
// vertices, VTX strips, PHY solids, decoded animation tracks, resolved
// materials) into the final neutral asset.Asset (§4.8 C9). Every method is
// a pure function of its arguments; Assembler itself holds no state.
type Assembler struct{}

func NewAssembler() *Assembler { return &Assembler{} }

// Assemble produces the final asset.Asset. anims maps an animation
// (ModelAnim) name to its already-decoded AnimationTrack (built by
// AnimDecoder); each sequence is looked up by its AnimName. materials is indexed exactly like
// md.TextureNames.
func (a *Assembler) Assemble(md *ModelData, vvd []VvdVertex, vtx []VtxBodyPart, phy *PhyData, anims map[string]asset.AnimationTrack, materials []asset.Material) (*asset.Asset, error) {
	skeleton := buildSkeleton(md.Bones)

	meshes, err := assembleMeshes(md, vvd, vtx)
	if err != nil {
		return nil, err
	}

	out := &asset.Asset{
		Name:      md.Name,
		Skeleton:  skeleton,
		Meshes:    meshes,
		Materials: materials,
	}

	for _, seq := range md.Seqs {
		if track, ok := anims[seq.AnimName]; ok {
			// A sequence without its own label plays under its underlying
			// animation's name instead.
			track.Name = common.Coalesce(seq.Name, track.Name)
			out.Animations = append(out.Animations, track)
		}
	}

	if phy != nil {
		out.Physics, out.Joints = assemblePhysics(&skeleton, phy)
	}

	return out, nil
}

// buildSkeleton composes WorldRest in a single forward pass: parent index
// is always strictly less than a bone's own index (enforced by readBones),
// so every ancestor is already resolved by the time we reach each bone.
func buildSkeleton(bones []ModelBone) asset.Skeleton {
	out := make([]asset.Bone, len(bones))
	for i, b := range bones {
		rest := asset.Transform{Position: b.Rest.Position, Rotation: b.Rest.Rotation}
		world := rest
		if b.Parent >= 0 {
			world = out[b.Parent].WorldRest.Compose(rest)
		}
		out[i] = asset.Bone{
			Name:        b.Name,
			ParentIndex: b.Parent,
			Rest:        rest,
			WorldRest:   world,
			RotScale:    b.RotScale,
			PosScale:    b.PosScale,
			PoseToBone:  b.PoseToBone,
		}
	}
	return asset.Skeleton{Bones: out}
}

func assembleMeshes(md *ModelData, vvd []VvdVertex, vtx []VtxBodyPart) ([]asset.FinalMesh, error) {
	var out []asset.FinalMesh

	for bpIdx, bp := range md.BodyParts {
		if bpIdx >= len(vtx) {
			return nil, fmt.Errorf("%w: body part %d has no matching vtx entry", ErrMalformedTable, bpIdx)
		}
		vtxBP := vtx[bpIdx]

		for mIdx, model := range bp.Models {
			if mIdx >= len(vtxBP.Models) {
				return nil, fmt.Errorf("%w: body part %d model %d has no matching vtx entry", ErrMalformedTable, bpIdx, mIdx)
			}
			vtxModel := vtxBP.Models[mIdx]

			for meIdx, mesh := range model.Meshes {
				if meIdx >= len(vtxModel.Meshes) {
					return nil, fmt.Errorf("%w: body part %d model %d mesh %d has no matching vtx entry", ErrMalformedTable, bpIdx, mIdx, meIdx)
				}
				vtxMesh := vtxModel.Meshes[meIdx]

				finalMesh, err := assembleMesh(model, mesh, vtxMesh, vvd)
				if err != nil {
					// Skip the smallest unit: this one mesh, not the
					// whole model (§7).
					continue
				}
				out = append(out, finalMesh)
			}
		}
	}

	return out, nil
}

func assembleMesh(model ModelModel, mesh ModelMesh, vtxMesh VtxMesh, vvd []VvdVertex) (asset.FinalMesh, error) {
	absoluteToLocal := make(map[int]int)
	var vertices []asset.Vertex

	resolve := func(meshRelative uint16) (int, error) {
		abs := int(model.VertexIndex) + int(mesh.VertexOffset) + int(meshRelative)
		if local, ok := absoluteToLocal[abs]; ok {
			return local, nil
		}
		if abs < 0 || abs >= len(vvd) {
			return 0, fmt.Errorf("%w: vertex index %d out of range of %d pool vertices", ErrMalformedTable, abs, len(vvd))
		}
		v := quantizeVertex(vvd[abs])
		local := len(vertices)
		vertices = append(vertices, v)
		absoluteToLocal[abs] = local
		return local, nil
	}

	if len(vtxMesh.Indices)%3 != 0 {
		return asset.FinalMesh{}, fmt.Errorf("%w: triangle list length %d not a multiple of 3", ErrMalformedTable, len(vtxMesh.Indices))
	}

	indices := make([]uint32, 0, len(vtxMesh.Indices))
	for i := 0; i+2 < len(vtxMesh.Indices); i += 3 {
		a, err := resolve(vtxMesh.Indices[i])
		if err != nil {
			return asset.FinalMesh{}, err
		}
		b, err := resolve(vtxMesh.Indices[i+1])
		if err != nil {
			return asset.FinalMesh{}, err
		}
		c, err := resolve(vtxMesh.Indices[i+2])
		if err != nil {
			return asset.FinalMesh{}, err
		}
		// Winding flip (§4.8 step 5): swap the second and third index of
		// every triangle to convert into this package's convention.
		indices = append(indices, uint32(a), uint32(c), uint32(b))
	}

	return asset.FinalMesh{
		MaterialIndex: int(mesh.Material),
		Vertices:      vertices,
		Indices:       indices,
	}, nil
}

// quantizeVertex converts a VVD vertex's float bone weights to the u8
// 0-255 encoding asset.Vertex uses, fixing any rounding remainder onto the
// largest-weight influence so the four weights always sum to exactly 255
// (§8 invariant).
func quantizeVertex(v VvdVertex) asset.Vertex {
	out := asset.Vertex{Position: v.Position, Normal: v.Normal, UV: v.UV}

	n := int(v.NumBones)
	if n <= 0 {
		n = 1 // unweighted vertices are fully bound to bone 0
	}
	if n > 3 {
		n = 3
	}

	var quantized [3]int
	sum := 0
	largest := 0
	for i := 0; i < n; i++ {
		w := v.BoneWeights[i]
		if n == 1 {
			w = 1
		}
		q := int(math.Round(float64(w) * 255))
		if q < 0 {
			q = 0
		}
		if q > 255 {
			q = 255
		}
		quantized[i] = q
		sum += q
		if q > quantized[largest] {
			largest = i
		}
	}
	if diff := 255 - sum; diff != 0 {
		quantized[largest] += diff
	}

	for i := 0; i < n; i++ {
		bone := uint8(0)
		if i < len(v.BoneIndices) {
			bi := v.BoneIndices[i]
			if bi >= 0 {
				bone = uint8(bi)
			}
		}
		out.Weights[i] = asset.SkinWeight{BoneIndex: bone, Weight: uint8(quantized[i])}
	}
	return out
}

// assemblePhysics builds PhysBody/PhysJoint lists from the decoded solids
// and ragdoll constraints. Solid i is bound to bone i — the common case for
// ragdolls, where physics solids are authored one-to-one with the leading
// bones of the skeleton in declaration order.
func assemblePhysics(skeleton *asset.Skeleton, phy *PhyData) ([]asset.PhysBody, []asset.PhysJoint) {
	bodies := make([]asset.PhysBody, len(phy.Solids))
	hasBody := make(map[int32]bool, len(phy.Solids))
	for i, solid := range phy.Solids {
		boneIndex := int32(i)
		hasBody[boneIndex] = true
		name := ""
		if int(boneIndex) < len(skeleton.Bones) {
			name = skeleton.Bones[boneIndex].Name
		}
		bodies[i] = asset.PhysBody{
			BoneIndex: boneIndex,
			Name:      name,
			Hulls:     solid.Hulls,
			Mass:      1,
		}
	}

	var joints []asset.PhysJoint
	seen := make(map[[2]int]bool)
	for _, con := range phy.Constraints {
		if con.ParentSolid < 0 || con.ParentSolid >= len(bodies) || con.ChildSolid < 0 || con.ChildSolid >= len(bodies) {
			continue
		}
		frame1, frame2 := jointFrames(skeleton, bodies, con.ParentSolid, con.ChildSolid)
		joints = append(joints, asset.PhysJoint{
			ParentBody:    con.ParentSolid,
			ChildBody:     con.ChildSolid,
			Frame1:        frame1,
			Frame2:        frame2,
			SwingLimitDeg: con.SwingLimitDeg,
			TwistLimitDeg: con.TwistLimitDeg,
		})
		seen[[2]int{con.ParentSolid, con.ChildSolid}] = true
	}

	// Every body gets an implicit joint to the body of its nearest ancestor
	// bone that has one, unless an explicit KV constraint already joins that
	// same (parent, child) body pair, so the ragdoll graph stays
	// connected even when the text block under-documents it (§9).
	for i, body := range bodies {
		parentBone := skeleton.NearestAncestorWithBody(body.BoneIndex, hasBody)
		if parentBone < 0 {
			continue
		}
		parentIdx := findBodyByBone(bodies, parentBone)
		if parentIdx < 0 || parentIdx == i {
			continue
		}
		key := [2]int{parentIdx, i}
		if seen[key] {
			continue
		}
		frame1, frame2 := jointFrames(skeleton, bodies, parentIdx, i)
		joints = append(joints, asset.PhysJoint{ParentBody: parentIdx, ChildBody: i, Frame1: frame1, Frame2: frame2})
		seen[key] = true
	}

	return bodies, joints
}

// jointFrames computes a joint's parent/child-local anchor frames from the
// two bodies' bones' world-rest poses (§4.8 step 8): frame1 places the
// child's world-rest pose in the parent's local space, frame2 is always
// identity since the child's own rest pose already is that anchor.
func jointFrames(skeleton *asset.Skeleton, bodies []asset.PhysBody, parentBody, childBody int) (asset.Transform, asset.Transform) {
	parentWorld := skeleton.Bones[bodies[parentBody].BoneIndex].WorldRest
	childWorld := skeleton.Bones[bodies[childBody].BoneIndex].WorldRest

	parentRotInv := parentWorld.Rotation.Inverse()
	frame1 := asset.Transform{
		Position: parentRotInv.Rotate(childWorld.Position.Sub(parentWorld.Position)),
		Rotation: parentRotInv.Mul(childWorld.Rotation).Normalize(),
	}
	return frame1, asset.IdentityTransform()
}

func findBodyByBone(bodies []asset.PhysBody, boneIndex int32) int {
	for i, b := range bodies {
		if b.BoneIndex == boneIndex {
			return i
		}
	}
	return -1
}
