package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sourceassets/mdlimport/asset"
)

// decodeStage names the state-machine stages a Decode call passes through
// (§7 "OPEN -> HDR_PARSED -> SKELETON_READY -> MESHES_READY ->
// MATERIALS_READY -> ANIMS_READY -> PHYSICS_READY -> EMITTED"). Failure at
// any stage past OPEN falls back to PLACEHOLDER rather than propagating a
// hard error, except for the conditions §7 documents as fatal (invalid
// model, missing companion, aborted context).
type decodeStage string

const (
	stageOpen       decodeStage = "open"
	stageHeader     decodeStage = "hdr_parsed"
	stageSkeleton   decodeStage = "skeleton_ready"
	stageMeshes     decodeStage = "meshes_ready"
	stageMaterials  decodeStage = "materials_ready"
	stageAnims      decodeStage = "anims_ready"
	stagePhysics    decodeStage = "physics_ready"
)

// Decoder is the top-level entry point: given a model path, it resolves
// every companion file, runs each component reader, and assembles the
// result into an asset.Asset (§5/§6).
type Decoder struct {
	cfg *config

	mdl *MdlReader
	vvd *VvdReader
	vtx *VtxReader
	phy *PhyReader
	tex *TexDecoder
	anim *AnimDecoder
	asm  *Assembler
}

// NewDecoder builds a Decoder from the given options. WithBlobStore is
// required.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		return nil, errors.New("decode: NewDecoder requires WithBlobStore")
	}
	return &Decoder{
		cfg:  cfg,
		mdl:  NewMdlReader(),
		vvd:  NewVvdReader(),
		vtx:  NewVtxReader(),
		phy:  NewPhyReader(),
		tex:  NewTexDecoder(),
		anim: NewAnimDecoder(),
		asm:  NewAssembler(),
	}, nil
}

// Decode resolves path (a .mdl file) and its companions through the
// configured BlobStore and returns the assembled asset. On unrecoverable
// failure it returns the fixed placeholder asset (Placeholder == true)
// rather than an error, except for context cancellation, which is
// propagated so the caller can distinguish "gave up" from "couldn't make
// sense of this asset" (§7).
func (d *Decoder) Decode(ctx context.Context, path string) (*asset.Asset, error) {
	stage := stageOpen
	log := d.cfg.logger.With("path", path)

	checkAbort := func() error {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: stage %s: %v", ErrAborted, stage, ctx.Err())
		default:
			return nil
		}
	}

	if err := checkAbort(); err != nil {
		return nil, err
	}

	mdlBytes, err := d.cfg.store.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrInvalidModel, path, err)
	}
	md, err := d.mdl.Parse(mdlBytes)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	stage = stageHeader

	if err := checkAbort(); err != nil {
		return nil, err
	}

	vvdPath := companionPath(path, d.cfg.vvdSuffix)
	vvdBytes, err := d.cfg.store.Read(ctx, vvdPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMissingCompanion, vvdPath, err)
	}
	vvdVerts, err := d.vvd.Parse(vvdBytes)
	if err != nil {
		log.Warn("vertex pool decode failed, returning placeholder", "stage", stage, "component", "vvd", "error", err)
		return placeholderAsset(md.Name), nil
	}
	stage = stageSkeleton

	if err := checkAbort(); err != nil {
		return nil, err
	}

	vtxBytes, vtxPath, err := d.readFirstCompanion(ctx, path, d.cfg.vtxSuffixes)
	if err != nil {
		return nil, fmt.Errorf("%w: none of %v found for %q: %v", ErrMissingCompanion, d.cfg.vtxSuffixes, path, err)
	}
	vtxParts, err := d.vtx.Parse(vtxBytes)
	if err != nil {
		log.Warn("mesh tree decode failed, returning placeholder", "stage", stage, "component", "vtx", "path", vtxPath, "error", err)
		return placeholderAsset(md.Name), nil
	}
	stage = stageMeshes

	if err := checkAbort(); err != nil {
		return nil, err
	}

	materials := d.resolveMaterials(ctx, md, log)
	stage = stageMaterials

	if err := checkAbort(); err != nil {
		return nil, err
	}

	anims := d.decodeAnimations(ctx, path, md, log)
	stage = stageAnims

	if err := checkAbort(); err != nil {
		return nil, err
	}

	var phyData *PhyData
	phyPath := companionPath(path, d.cfg.phySuffix)
	if d.cfg.store.Exists(ctx, phyPath) {
		phyBytes, err := d.cfg.store.Read(ctx, phyPath)
		if err != nil {
			log.Warn("physics companion present but unreadable", "stage", stage, "component", "phy", "path", phyPath, "error", err)
		} else if parsed, err := d.phy.Parse(phyBytes); err != nil {
			log.Warn("physics decode failed, continuing without physics", "stage", stage, "component", "phy", "path", phyPath, "error", err)
		} else {
			phyData = parsed
		}
	}
	stage = stagePhysics

	out, err := d.asm.Assemble(md, vvdVerts, vtxParts, phyData, anims, materials)
	if err != nil {
		log.Warn("assembly failed, returning placeholder", "stage", stage, "component", "assembler", "error", err)
		return placeholderAsset(md.Name), nil
	}

	return out, nil
}

// readFirstCompanion tries each suffix in order and returns the first one
// that resolves, matching §6's documented VTX resolution order
// (.dx90.vtx, .dx80.vtx, .sw.vtx).
func (d *Decoder) readFirstCompanion(ctx context.Context, path string, suffixes []string) ([]byte, string, error) {
	var lastErr error
	for _, suffix := range suffixes {
		candidate := companionPath(path, suffix)
		b, err := d.cfg.store.Read(ctx, candidate)
		if err == nil {
			return b, candidate, nil
		}
		lastErr = err
	}
	return nil, "", lastErr
}

func (d *Decoder) resolveMaterials(ctx context.Context, md *ModelData, log *slog.Logger) []asset.Material {
	materials := make([]asset.Material, len(md.TextureNames))
	for i, name := range md.TextureNames {
		blob, texPath, ok := d.findTexture(ctx, name, md.TextureSearchPaths)
		if !ok {
			materials[i] = asset.Material{Name: name}
			continue
		}
		mat, err := d.tex.Decode(blob, name)
		if err != nil {
			log.Warn("texture decode failed, material left blank", "component", "tex", "path", texPath, "error", err)
			materials[i] = asset.Material{Name: name}
			continue
		}
		materials[i] = mat
	}
	return materials
}

// findTexture probes each search path in turn for name+".vtf", preferring
// the first that exists (§4.8 "material assignment via texture-search-path
// probing").
func (d *Decoder) findTexture(ctx context.Context, name string, searchPaths []string) ([]byte, string, bool) {
	for _, sp := range searchPaths {
		candidate := joinMaterialPath(sp, name)
		if d.cfg.store.Exists(ctx, candidate) {
			b, err := d.cfg.store.Read(ctx, candidate)
			if err == nil {
				return b, candidate, true
			}
		}
	}
	return nil, "", false
}

func joinMaterialPath(searchPath, name string) string {
	sp := strings.TrimSuffix(searchPath, "/")
	return sp + "/" + name + ".vtf"
}

func (d *Decoder) decodeAnimations(ctx context.Context, mdlPath string, md *ModelData, log *slog.Logger) map[string]asset.AnimationTrack {
	out := make(map[string]asset.AnimationTrack, len(md.Anims))
	for _, a := range md.Anims {
		data := a.Data
		if a.AnimBlock != 0 {
			resolved, err := d.resolveAnimBlock(ctx, mdlPath, md, a.AnimBlock)
			if err != nil {
				log.Warn("animation block unavailable, using rest pose", "component", "anim", "anim", a.Name, "error", err)
				data = nil
			} else {
				data = resolved
			}
		}
		track, err := d.anim.Decode(ModelAnim{Name: a.Name, FPS: a.FPS, NumFrames: a.NumFrames, Data: data}, md.Bones)
		if err != nil {
			log.Warn("animation decode failed, skipping sequence", "component", "anim", "anim", a.Name, "error", err)
			continue
		}
		out[a.Name] = track
	}
	return out
}

func (d *Decoder) resolveAnimBlock(ctx context.Context, mdlPath string, md *ModelData, blockIndex int32) ([]byte, error) {
	if int(blockIndex) >= len(md.AnimBlocks) {
		return nil, fmt.Errorf("anim block index %d out of range", blockIndex)
	}
	aniPath := companionPath(mdlPath, d.cfg.aniSuffix)
	full, err := d.cfg.store.Read(ctx, aniPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMissingCompanion, aniPath, err)
	}
	block := md.AnimBlocks[blockIndex]
	if block.DataStart < 0 || int(block.DataEnd) > len(full) || block.DataStart > block.DataEnd {
		return nil, fmt.Errorf("%w: anim block %d range invalid", ErrMalformedTable, blockIndex)
	}
	return full[block.DataStart:block.DataEnd], nil
}

// companionPath replaces path's final extension with suffix (suffix
// already includes its leading dot, e.g. ".vvd" or ".dx90.vtx").
func companionPath(path, suffix string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[:idx] + suffix
	}
	return path + suffix
}

// placeholderAsset is the fixed magenta-cube substitute returned when
// decode fails past the point of no return (§7 PLACEHOLDER state).
func placeholderAsset(name string) *asset.Asset {
	root := asset.Bone{Name: "root", ParentIndex: -1, Rest: asset.IdentityTransform(), WorldRest: asset.IdentityTransform()}

	cube := placeholderCubeMesh()

	return &asset.Asset{
		Name:        name,
		Skeleton:    asset.Skeleton{Bones: []asset.Bone{root}},
		Meshes:      []asset.FinalMesh{cube},
		Materials:   []asset.Material{placeholderMagenta()},
		Placeholder: true,
	}
}

func placeholderMagenta() asset.Material {
	pixels := []byte{0xFF, 0x00, 0xFF, 0xFF}
	return asset.Material{Name: "placeholder_magenta", Width: 1, Height: 1, Pixels: pixels}
}

// placeholderCubeMesh is a fixed 1-inch unit cube, fully bound to bone 0,
// used as the PLACEHOLDER mesh (§7).
func placeholderCubeMesh() asset.FinalMesh {
	corners := [8][3]float32{
		{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
	}
	var verts []asset.Vertex
	for _, c := range corners {
		verts = append(verts, asset.Vertex{
			Position: mgl32.Vec3{c[0], c[1], c[2]},
			Weights:  [4]asset.SkinWeight{{BoneIndex: 0, Weight: 255}},
		})
	}
	indices := []uint32{
		0, 1, 2, 0, 2, 3, // back
		4, 6, 5, 4, 7, 6, // front
		0, 4, 5, 0, 5, 1, // bottom
		3, 2, 6, 3, 6, 7, // top
		0, 3, 7, 0, 7, 4, // left
		1, 5, 6, 1, 6, 2, // right
	}
	return asset.FinalMesh{Name: "placeholder_cube", Vertices: verts, Indices: indices}
}
