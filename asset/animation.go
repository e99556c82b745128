package asset

// BoneTrack is the decoded per-bone channel of a single animation: one
// parent-local Transform per frame. Frame 0 always exists; for a bone whose
// channel was encoded as a single static pose (no RLE channel for that
// bone), every entry is identical.
type BoneTrack struct {
	BoneIndex int32
	Frames    []Transform
}

// AnimationTrack is one decoded sequence: a fixed frame count and, for every
// bone the MDL skeleton declares, a BoneTrack. Bones with no authored
// channel hold their Rest transform for every frame (§4.7 "absent channel
// falls back to the bone's bind/rest transform").
type AnimationTrack struct {
	Name      string
	FrameRate float32
	FrameCount int
	Bones     []BoneTrack
}

// FrameCountOf returns len(Frames) of the bone track whose BoneIndex equals
// boneIndex, or 0 when no track has that bone index.
func (a *AnimationTrack) FrameCountOf(boneIndex int32) int {
	for i := range a.Bones {
		if a.Bones[i].BoneIndex == boneIndex {
			return len(a.Bones[i].Frames)
		}
	}
	return 0
}
