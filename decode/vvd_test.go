package decode

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// writeVvdHeader writes the fixed VVD header (64 bytes) matching the layout
// VvdReader.Parse expects: magic, version, checksum, LOD count/vertex
// counts, fixup table location, vertex/tangent data offsets.
func writeVvdHeader(buf *bytes.Buffer, numLOD0Vertices, numFixups, fixupTableStart, vertexDataStart int32) {
	buf.WriteString("IDSV")
	binary.Write(buf, binary.LittleEndian, int32(4))  // version
	binary.Write(buf, binary.LittleEndian, int32(0))  // checksum
	binary.Write(buf, binary.LittleEndian, int32(1))  // numLODs
	lodVerts := [8]int32{}
	lodVerts[0] = numLOD0Vertices
	for _, v := range lodVerts {
		binary.Write(buf, binary.LittleEndian, v)
	}
	binary.Write(buf, binary.LittleEndian, numFixups)
	binary.Write(buf, binary.LittleEndian, fixupTableStart)
	binary.Write(buf, binary.LittleEndian, vertexDataStart)
	binary.Write(buf, binary.LittleEndian, int32(0)) // tangentDataStart, unused
}

func writeVvdVertex(buf *bytes.Buffer, tagX float32) {
	binary.Write(buf, binary.LittleEndian, [3]float32{1, 0, 0}) // bone weights
	buf.Write([]byte{0, 0, 0})                                  // bone indices
	buf.WriteByte(1)                                            // numBones
	binary.Write(buf, binary.LittleEndian, [3]float32{tagX, 0, 0}) // position, tagged by X
	binary.Write(buf, binary.LittleEndian, [3]float32{0, 1, 0})    // normal
	binary.Write(buf, binary.LittleEndian, [2]float32{0, 0})       // uv
}

func TestVvdParseNoFixups(t *testing.T) {
	var buf bytes.Buffer
	const headerSize = 64
	writeVvdHeader(&buf, 2, 0, 0, headerSize)
	writeVvdVertex(&buf, 10)
	writeVvdVertex(&buf, 20)

	verts, err := NewVvdReader().Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(verts) != 2 {
		t.Fatalf("got %d vertices, want 2", len(verts))
	}
	if verts[0].Position[0] != 10 || verts[1].Position[0] != 20 {
		t.Errorf("vertex order/content wrong: %v, %v", verts[0].Position, verts[1].Position)
	}
}

func TestVvdParseAppliesFixupTableInOrder(t *testing.T) {
	var buf bytes.Buffer
	const headerSize = 64
	const fixupStart = headerSize
	const numFixups = 2
	const vertexStart = fixupStart + numFixups*vvdFixupStride

	writeVvdHeader(&buf, 2, numFixups, fixupStart, vertexStart)

	// Fixup table: LOD 0 entry takes source vertices 1 and 2; the LOD 1
	// entry (lod >= 0, so also applied) then takes source vertex 0.
	binary.Write(&buf, binary.LittleEndian, int32(0)) // lod
	binary.Write(&buf, binary.LittleEndian, int32(1)) // sourceVertexID
	binary.Write(&buf, binary.LittleEndian, int32(2)) // numVertices
	binary.Write(&buf, binary.LittleEndian, int32(1)) // lod
	binary.Write(&buf, binary.LittleEndian, int32(0))
	binary.Write(&buf, binary.LittleEndian, int32(1))

	// Vertex pool: 3 entries tagged 0, 1, 2.
	writeVvdVertex(&buf, 0)
	writeVvdVertex(&buf, 1)
	writeVvdVertex(&buf, 2)

	verts, err := NewVvdReader().Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(verts) != 3 {
		t.Fatalf("got %d vertices, want 3 (both fixups applied)", len(verts))
	}
	if verts[0].Position[0] != 1 || verts[1].Position[0] != 2 || verts[2].Position[0] != 0 {
		t.Errorf("fixups did not select source vertices 1,2,0: got %v, %v, %v", verts[0].Position, verts[1].Position, verts[2].Position)
	}
}
