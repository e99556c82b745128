package decode

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalMdl assembles a synthetic single-bone, no-mesh, no-anim model
// file: the fixed v49 header followed by one 216-byte bone record and its
// name string. BoneIndex is patched in after the full header is written, so
// the test never has to hand-compute the header's total size.
func buildMinimalMdl(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v int32) { binary.Write(&buf, binary.LittleEndian, v) }
	wf := func(v float32) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("IDST")
	w(49) // version
	w(0)  // checksum
	nameField := make([]byte, 64)
	copy(nameField, "test_cube")
	buf.Write(nameField)

	w(0) // length
	for i := 0; i < 18; i++ {
		wf(0) // eyeposition/illumposition/hull/view bboxes (6 vec3)
	}
	w(0) // flags

	w(1) // NumBones
	boneIndexFieldOffset := buf.Len()
	w(0) // BoneIndex, patched below

	w(0) // bonecontrollers count
	w(0) // bonecontrollers index
	w(0) // hitboxsets count
	w(0) // hitboxsets index

	w(0) // NumLocalAnim
	w(0) // LocalAnimIndex
	w(0) // NumLocalSeq
	w(0) // LocalSeqIndex
	w(0) // activitylistversion
	w(0) // eventsindexed

	w(0) // NumTextures
	w(0) // TextureIndex
	w(0) // NumCDTextures
	w(0) // CDTextureIndex
	w(0) // NumSkinRef
	w(0) // NumSkinFamilies
	w(0) // SkinIndex

	w(0) // NumBodyParts
	w(0) // BodyPartIndex

	w(0) // attachments count
	w(0) // attachments index
	w(0) // nodes count
	w(0) // node index
	w(0) // node name index
	w(0) // flexdesc count
	w(0) // flexdesc index
	w(0) // flexcontrollers count
	w(0) // flexcontrollers index
	w(0) // flexrules count
	w(0) // flexrules index
	w(0) // ikchains count
	w(0) // ikchains index
	w(0) // mouths count
	w(0) // mouths index
	w(0) // poseparam count
	w(0) // poseparam index
	w(0) // surfacepropindex
	w(0) // keyvalue index
	w(0) // keyvalue size
	w(0) // ikautoplaylocks count
	w(0) // ikautoplaylocks index

	wf(1) // mass
	w(0)  // contents

	w(0) // NumIncludeModels
	w(0) // IncludeModelIndex
	w(0) // virtual model pointer

	w(0) // AnimBlockNameIndex
	w(0) // NumAnimBlocks
	w(0) // AnimBlockIndex

	boneTableStart := int32(buf.Len())
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[boneIndexFieldOffset:], uint32(boneTableStart))

	const boneStride = 216
	bw := func(v int32) { binary.Write(&buf, binary.LittleEndian, v) }
	bwf := func(v float32) { binary.Write(&buf, binary.LittleEndian, v) }

	// Bone record: name offset (relative to this record's base), parent,
	// 6 bone controllers, position, quaternion, pose-to-bone (12 floats),
	// rotscale, posscale; name string placed right after the fixed record.
	bw(boneStride)
	bw(-1) // parent: root
	for i := 0; i < 6; i++ {
		bw(0)
	}
	bwf(0)
	bwf(0)
	bwf(0) // position
	bwf(0)
	bwf(0)
	bwf(0)
	bwf(1) // quaternion x,y,z,w identity
	for i := 0; i < 12; i++ {
		bwf(0) // pose-to-bone
	}
	bwf(1)
	bwf(1)
	bwf(1) // rotscale
	bwf(1)
	bwf(1)
	bwf(1) // posscale

	// The real on-disk bone record carries more trailing fields (procedural
	// bone data, physics bone index, surface property, contents, reserved
	// ints) that readBones never reads; pad out to the full stride so the
	// name string this test writes lands where nameOff says it should.
	if pad := boneStride - (buf.Len() - int(boneTableStart)); pad > 0 {
		buf.Write(make([]byte, pad))
	}

	if got := buf.Len() - int(boneTableStart); got != boneStride {
		t.Fatalf("bone record is %d bytes, want %d", got, boneStride)
	}

	buf.WriteString("root_bone\x00")

	return buf.Bytes()
}

func TestMdlParseMinimalSkeleton(t *testing.T) {
	data := buildMinimalMdl(t)

	md, err := NewMdlReader().Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if md.Name != "test_cube" {
		t.Errorf("Name = %q, want test_cube", md.Name)
	}
	if len(md.Bones) != 1 {
		t.Fatalf("got %d bones, want 1", len(md.Bones))
	}
	if md.Bones[0].Name != "root_bone" {
		t.Errorf("bone name = %q, want root_bone", md.Bones[0].Name)
	}
	if md.Bones[0].Parent != -1 {
		t.Errorf("bone parent = %d, want -1", md.Bones[0].Parent)
	}
}

func TestMdlParseRejectsBadMagic(t *testing.T) {
	_, err := NewMdlReader().Parse([]byte("XXXX"))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestMdlParseRejectsUnsupportedVersion(t *testing.T) {
	data := buildMinimalMdl(t)
	// Version is the 4 bytes right after the magic.
	binary.LittleEndian.PutUint32(data[4:8], 9999)
	_, err := NewMdlReader().Parse(data)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
}
