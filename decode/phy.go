package decode

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/internal/bin"
)

// metersToInches is the Source-engine unit conversion applied to every PHY
// vertex (§4.6): physics data is authored in meters, everything else in
// this package is in inches.
const metersToInches = 39.37

var vphyMagic = [4]byte{'V', 'P', 'H', 'Y'}

// PhyHull is one convex collision hull in bone-local space, already
// converted to inches.
type PhyHull struct {
	Vertices []mgl32.Vec3
}

// PhySolid is one decoded physics solid: its collision hulls and the bone
// it's bound to (bone index is resolved by the Assembler from the solid's
// position in the array, matching MDL bone order).
type PhySolid struct {
	Hulls [][]mgl32.Vec3
}

// PhyConstraint is one ragdoll joint constraint parsed from the trailing
// key/value text (§4.6).
type PhyConstraint struct {
	ParentSolid int
	ChildSolid  int

	SwingLimitDeg float32
	TwistLimitDeg [2]float32
}

// PhyData is PhyReader's full decoded output.
type PhyData struct {
	Solids      []PhySolid
	Constraints []PhyConstraint
}

// PhyReader parses a physics companion file (§4.6 C7): binary convex solids
// followed by a trailing KeyValues text block describing ragdoll
// constraints.
type PhyReader struct{}

func NewPhyReader() *PhyReader { return &PhyReader{} }

// Parse decodes data (the full contents of a .phy file).
func (r *PhyReader) Parse(data []byte) (*PhyData, error) {
	c := bin.NewCursor(data)

	headerSize, err := c.I32()
	if err != nil {
		return nil, fmt.Errorf("%w: phy header: %v", ErrInvalidModel, err)
	}
	if _, err := c.I32(); err != nil { // id, unused
		return nil, err
	}
	solidCount, err := c.I32()
	if err != nil {
		return nil, err
	}
	if _, err := c.I32(); err != nil { // checksum, must match the .mdl's
		return nil, err
	}
	if int(headerSize) != 16 {
		return nil, fmt.Errorf("%w: phy header reports size %d, expected 16", ErrMalformedTable, headerSize)
	}

	pos := int(headerSize)
	solids := make([]PhySolid, 0, solidCount)
	for i := int32(0); i < solidCount; i++ {
		sc := bin.NewCursor(data)
		if err := sc.Seek(pos); err != nil {
			return nil, fmt.Errorf("%w: solid %d: %v", ErrMalformedTable, i, err)
		}
		dataSize, err := sc.I32()
		if err != nil {
			return nil, fmt.Errorf("%w: solid %d size: %v", ErrMalformedTable, i, err)
		}
		solidStart := pos + 4
		solidEnd := solidStart + int(dataSize)
		if solidEnd > len(data) {
			return nil, fmt.Errorf("%w: solid %d extends past end of file", ErrMalformedTable, i)
		}

		solid, err := parsePhySolid(data[solidStart:solidEnd])
		if err != nil {
			// A malformed individual solid is skipped, not fatal: the
			// smallest enclosing unit (§7 "skip smallest unit").
			solids = append(solids, PhySolid{})
		} else {
			solids = append(solids, solid)
		}

		pos = solidEnd
	}

	var constraints []PhyConstraint
	if pos < len(data) {
		text := string(data[pos:])
		root, err := parseKV(text)
		if err == nil {
			constraints = extractConstraints(root)
		}
	}

	return &PhyData{Solids: solids, Constraints: constraints}, nil
}

// parsePhySolid decodes one convex-mesh solid: a 16-byte header (magic,
// version, model type, vertex/triangle counts) followed by the vertex
// pool and triangle index triples (§4.6).
func parsePhySolid(block []byte) (PhySolid, error) {
	c := bin.NewCursor(block)

	magic, err := c.Bytes(4)
	if err != nil {
		return PhySolid{}, err
	}
	if string(magic) != string(vphyMagic[:]) {
		// Legacy (pre-VPHY, "ivps" v0.37) solids use a differently shaped
		// header this decoder does not model; treat as unsupported rather
		// than misreading bytes as a vertex pool.
		return PhySolid{}, fmt.Errorf("%w: solid uses legacy non-VPHY header", ErrUnsupportedFormat)
	}
	if _, err := c.I16(); err != nil { // version
		return PhySolid{}, err
	}
	if _, err := c.I16(); err != nil { // model type
		return PhySolid{}, err
	}
	vertexCount, err := c.I32()
	if err != nil {
		return PhySolid{}, err
	}
	triangleCount, err := c.I32()
	if err != nil {
		return PhySolid{}, err
	}

	vertices := make([]mgl32.Vec3, 0, vertexCount)
	for i := int32(0); i < vertexCount; i++ {
		x, y, z, err := c.Vec3()
		if err != nil {
			return PhySolid{}, fmt.Errorf("%w: vertex %d: %v", ErrMalformedTable, i, err)
		}
		vertices = append(vertices, mgl32.Vec3{x * metersToInches, y * metersToInches, z * metersToInches})
	}

	used := make(map[int32]bool, vertexCount)
	for i := int32(0); i < triangleCount; i++ {
		a, err := c.I32()
		if err != nil {
			return PhySolid{}, fmt.Errorf("%w: triangle %d: %v", ErrMalformedTable, i, err)
		}
		b, err := c.I32()
		if err != nil {
			return PhySolid{}, err
		}
		cc, err := c.I32()
		if err != nil {
			return PhySolid{}, err
		}
		used[a], used[b], used[cc] = true, true, true
	}

	// §8 scenario: hulls with more than 64 vertices are substituted with
	// their axis-aligned bounding box rather than decoded in full.
	if len(vertices) > 64 {
		min, max := vertices[0], vertices[0]
		for _, v := range vertices[1:] {
			min = compMin(min, v)
			max = compMax(max, v)
		}
		box := []mgl32.Vec3{
			{min[0], min[1], min[2]}, {max[0], min[1], min[2]},
			{min[0], max[1], min[2]}, {max[0], max[1], min[2]},
			{min[0], min[1], max[2]}, {max[0], min[1], max[2]},
			{min[0], max[1], max[2]}, {max[0], max[1], max[2]},
		}
		return PhySolid{Hulls: [][]mgl32.Vec3{box}}, nil
	}

	return PhySolid{Hulls: [][]mgl32.Vec3{vertices}}, nil
}

func compMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{minF(a[0], b[0]), minF(a[1], b[1]), minF(a[2], b[2])}
}
func compMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{maxF(a[0], b[0]), maxF(a[1], b[1]), maxF(a[2], b[2])}
}
func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// extractConstraints walks the parsed KeyValues tree for "ragdollconstraint"
// blocks, pulling parent/child solid indices and swing/twist limits: swing
// is the single scalar max(|x-max|, |y-max|), twist is the z-min..z-max
// range (§4.6 NEW, §4.8 step 8).
func extractConstraints(root *kvNode) []PhyConstraint {
	var out []PhyConstraint
	for _, block := range root.Children {
		if !strings.EqualFold(block.Key, "ragdollconstraint") {
			continue
		}
		var con PhyConstraint
		if p := block.child("parent"); p != nil {
			con.ParentSolid = atoiSafe(p.Value)
		}
		if ch := block.child("child"); ch != nil {
			con.ChildSolid = atoiSafe(ch.Value)
		}

		var xmax, ymax float32
		if xm := block.child("xmax"); xm != nil {
			if vals := kvFloats(xm.Value); len(vals) > 0 {
				xmax = vals[0]
			}
		}
		if ym := block.child("ymax"); ym != nil {
			if vals := kvFloats(ym.Value); len(vals) > 0 {
				ymax = vals[0]
			}
		}
		con.SwingLimitDeg = maxF(absF(xmax), absF(ymax))

		if zmin := block.child("zmin"); zmin != nil {
			vals := kvFloats(zmin.Value)
			if len(vals) > 0 {
				con.TwistLimitDeg[0] = vals[0]
			}
		}
		if zmax := block.child("zmax"); zmax != nil {
			vals := kvFloats(zmax.Value)
			if len(vals) > 0 {
				con.TwistLimitDeg[1] = vals[0]
			}
		}
		out = append(out, con)
	}
	return out
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func atoiSafe(s string) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		return -n
	}
	return n
}
