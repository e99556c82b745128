package decode

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/asset"
)

func TestQuantizeVertexUnweightedBindsToBoneZero(t *testing.T) {
	v := VvdVertex{NumBones: 0, BoneIndices: [3]int8{0, 0, 0}}
	out := quantizeVertex(v)

	sum := 0
	for _, w := range out.Weights {
		sum += int(w.Weight)
	}
	if sum != 255 {
		t.Fatalf("weight sum = %d, want 255", sum)
	}
	if out.Weights[0].BoneIndex != 0 || out.Weights[0].Weight != 255 {
		t.Errorf("unweighted vertex = %+v, want bone 0 weight 255", out.Weights[0])
	}
}

func TestQuantizeVertexRoundingRemainderLandsOnLargest(t *testing.T) {
	v := VvdVertex{
		NumBones:    2,
		BoneWeights: [3]float32{0.5, 0.5},
		BoneIndices: [3]int8{0, 1},
	}
	out := quantizeVertex(v)

	sum := 0
	for i := 0; i < 2; i++ {
		sum += int(out.Weights[i].Weight)
	}
	if sum != 255 {
		t.Fatalf("weight sum = %d, want 255 (invariant: always exactly 255)", sum)
	}
}

func TestQuantizeVertexClampsToThreeBones(t *testing.T) {
	// VvdVertex only carries 3 weight slots on disk; the fourth asset.Vertex
	// slot always comes back zero.
	v := VvdVertex{
		NumBones:    3,
		BoneWeights: [3]float32{0.5, 0.3, 0.2},
		BoneIndices: [3]int8{2, 5, 9},
	}
	out := quantizeVertex(v)
	if out.Weights[3].Weight != 0 {
		t.Errorf("fourth weight slot = %d, want 0", out.Weights[3].Weight)
	}
}

func TestBuildSkeletonComposesWorldRest(t *testing.T) {
	bones := []ModelBone{
		{Name: "root", Parent: -1},
		{Name: "child", Parent: 0},
	}
	bones[0].Rest.Position = mgl32.Vec3{1, 0, 0}
	bones[0].Rest.Rotation = mgl32.QuatIdent()
	bones[1].Rest.Position = mgl32.Vec3{0, 2, 0}
	bones[1].Rest.Rotation = mgl32.QuatIdent()

	sk := buildSkeleton(bones)

	want := mgl32.Vec3{1, 2, 0}
	if sk.Bones[1].WorldRest.Position != want {
		t.Errorf("child WorldRest.Position = %v, want %v", sk.Bones[1].WorldRest.Position, want)
	}
}

func TestAssemblePhysicsBuildsImplicitJoints(t *testing.T) {
	skeleton := testSkeletonForPhysics()
	phy := &PhyData{
		Solids: []PhySolid{{}, {}, {}}, // one per bone, no explicit constraints
	}

	bodies, joints := assemblePhysics(&skeleton, phy)
	if len(bodies) != 3 {
		t.Fatalf("got %d bodies, want 3", len(bodies))
	}
	// every bone here has a body, so bone 2 (head)'s nearest ancestor with a
	// body is its direct parent, bone 1 (pelvis), not bone 0 (root).
	var found *asset.PhysJoint
	for i, j := range joints {
		if j.ParentBody == 1 && j.ChildBody == 2 {
			found = &joints[i]
		}
	}
	if found == nil {
		t.Fatalf("expected an implicit joint from pelvis(1) to head(2), got %+v", joints)
	}
	if found.Frame2 != asset.IdentityTransform() {
		t.Errorf("Frame2 = %+v, want identity", found.Frame2)
	}
	want := mgl32.Vec3{0, 2, 0} // head sits 2 units up from pelvis in parent-local space
	if got := found.Frame1.Position; got != want {
		t.Errorf("Frame1.Position = %v, want %v", got, want)
	}
}

func testSkeletonForPhysics() asset.Skeleton {
	return asset.Skeleton{Bones: []asset.Bone{
		{Name: "root", ParentIndex: -1, WorldRest: asset.IdentityTransform()},
		{Name: "pelvis", ParentIndex: 0, WorldRest: asset.IdentityTransform()},
		{Name: "head", ParentIndex: 1, WorldRest: asset.Transform{
			Position: mgl32.Vec3{0, 2, 0},
			Rotation: mgl32.QuatIdent(),
		}},
	}}
}
