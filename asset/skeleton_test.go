package asset

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTransformCompose(t *testing.T) {
	parent := Transform{Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.QuatIdent()}
	child := Transform{Position: mgl32.Vec3{0, 1, 0}, Rotation: mgl32.QuatIdent()}

	world := parent.Compose(child)

	want := mgl32.Vec3{1, 1, 0}
	if world.Position != want {
		t.Errorf("Compose position = %v, want %v", world.Position, want)
	}
}

func TestSkeletonIndexOf(t *testing.T) {
	s := Skeleton{Bones: []Bone{
		{Name: "root", ParentIndex: -1},
		{Name: "spine", ParentIndex: 0},
	}}
	if idx := s.IndexOf("spine"); idx != 1 {
		t.Errorf("IndexOf(spine) = %d, want 1", idx)
	}
	if idx := s.IndexOf("missing"); idx != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", idx)
	}
}

func TestNearestAncestorWithBody(t *testing.T) {
	// root(0) -> pelvis(1) -> spine(2) -> head(3), bodies on pelvis and root.
	s := Skeleton{Bones: []Bone{
		{Name: "root", ParentIndex: -1},
		{Name: "pelvis", ParentIndex: 0},
		{Name: "spine", ParentIndex: 1},
		{Name: "head", ParentIndex: 2},
	}}
	hasBody := map[int32]bool{0: true, 1: true}

	if got := s.NearestAncestorWithBody(3, hasBody); got != 1 {
		t.Errorf("NearestAncestorWithBody(head) = %d, want 1 (pelvis)", got)
	}
	if got := s.NearestAncestorWithBody(1, hasBody); got != 0 {
		t.Errorf("NearestAncestorWithBody(pelvis) = %d, want 0 (root)", got)
	}
	if got := s.NearestAncestorWithBody(0, hasBody); got != -1 {
		t.Errorf("NearestAncestorWithBody(root) = %d, want -1", got)
	}
}
