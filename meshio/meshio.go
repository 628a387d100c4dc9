// Package meshio loads triangulated Wavefront OBJ meshes (with their
// companion MTL material libraries) into the flat index/vertex buffers the
// BVH builder and path tracer operate on. It is intentionally minimal: no
// textures, no quads, no smoothing groups beyond whatever normals the OBJ
// file already carries.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tessera-render/tessera/vecmath"
)

// ErrNonTriangularFace is returned when a face line names more or fewer
// than 3 vertices; this loader does not triangulate polygons, matching the
// source loader's requirement that meshes be exported pre-triangulated.
var ErrNonTriangularFace = errors.New("meshio: face is not a triangle")

// Mesh is a handle into Buffers for one loaded mesh.
type Mesh struct {
	VertexCount      uint32
	TriangleCount    uint32
	IndexOffset      uint32
	BaseVertexOffset uint32
}

// Buffers holds every loaded mesh's vertex and index data in flat,
// concatenated arrays, so a Mesh handle is just an (offset, count) window
// into them -- the same arena convention bvh.Buffers uses for nodes.
type Buffers struct {
	Indices  []uint32
	Pos      []vecmath.Vec3
	Normal   []vecmath.Vec3
	Albedo   []vecmath.Vec4 // xyz = base color, w = alpha
	Material []vecmath.Vec4 // x = roughness, y = metallic, z = transmission, w = emission
}

type material struct {
	name         string
	albedo       vecmath.Vec3
	alpha        float32
	emission     vecmath.Vec3
	roughness    float32
	metallicness float32
	transmission vecmath.Vec3
}

func defaultMaterial() material {
	return material{albedo: vecmath.Vec3{X: 1, Y: 1, Z: 1}, roughness: 1}
}

func loadMTL(path string) ([]material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: opening mtl file: %w", err)
	}
	defer f.Close()

	var materials []material
	var current *material

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			m := defaultMaterial()
			if len(fields) > 1 {
				m.name = fields[1]
			}
			materials = append(materials, m)
			current = &materials[len(materials)-1]
		case "Kd":
			if current != nil && len(fields) >= 4 {
				current.albedo = parseVec3(fields[1:4])
			}
		case "Ke":
			if current != nil && len(fields) >= 4 {
				current.emission = parseVec3(fields[1:4])
			}
		case "d":
			if current != nil && len(fields) >= 2 {
				current.alpha = parseFloat(fields[1])
			}
		case "Pr":
			if current != nil && len(fields) >= 2 {
				current.roughness = parseFloat(fields[1])
			}
		case "Pm":
			if current != nil && len(fields) >= 2 {
				current.metallicness = parseFloat(fields[1])
			}
		case "Tf":
			if current != nil && len(fields) >= 4 {
				current.transmission = parseVec3(fields[1:4])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("meshio: reading mtl file: %w", err)
	}
	return materials, nil
}

func parseVec3(fields []string) vecmath.Vec3 {
	return vecmath.Vec3{X: parseFloat(fields[0]), Y: parseFloat(fields[1]), Z: parseFloat(fields[2])}
}

func parseFloat(s string) float32 {
	v, _ := strconv.ParseFloat(s, 32)
	return float32(v)
}

func parseIndex(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// indexGroup is a deduplication key for one OBJ vertex reference: OBJ
// shares positions/normals/texcoords across faces by index, but this
// module needs one flat vertex per unique (pos, tex, normal, material)
// combination, the same way the source loader's ig_to_index map does.
type indexGroup struct {
	pos, tex, normal, material int
}

// Load parses the OBJ file at path (triangulated faces only) and appends
// its vertices and indices to mb, returning a handle to the new mesh.
func Load(mb *Buffers, path string) (Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return Mesh{}, fmt.Errorf("meshio: opening obj file: %w", err)
	}
	defer f.Close()

	m := Mesh{
		IndexOffset:      uint32(len(mb.Indices)),
		BaseVertexOffset: uint32(len(mb.Pos)),
	}

	dir := filepath.Dir(path)
	var positions []vecmath.Vec3
	var normals []vecmath.Vec3
	materials := []material{defaultMaterial()}
	activeMaterial := 0

	var indices []indexGroup

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) >= 4 {
				positions = append(positions, parseVec3(fields[1:4]))
			}
		case "vn":
			if len(fields) >= 4 {
				normals = append(normals, parseVec3(fields[1:4]).Normalize())
			}
		case "f":
			if len(fields) != 4 {
				return Mesh{}, ErrNonTriangularFace
			}
			for _, vert := range fields[1:4] {
				fi := parseFaceVertex(vert)
				indices = append(indices, indexGroup{
					pos: fi.pos, tex: fi.tex, normal: fi.normal, material: activeMaterial,
				})
			}
		case "usemtl":
			name := fields[1]
			for i, mat := range materials {
				if mat.name == name {
					activeMaterial = i
					break
				}
			}
		case "mtllib":
			loaded, err := loadMTL(filepath.Join(dir, fields[1]))
			if err != nil {
				return Mesh{}, err
			}
			materials = append(materials, loaded...)
		}
	}
	if err := scanner.Err(); err != nil {
		return Mesh{}, fmt.Errorf("meshio: reading obj file: %w", err)
	}

	m.TriangleCount = uint32(len(indices) / 3)

	seen := make(map[indexGroup]uint32, len(indices))
	for _, ig := range indices {
		idx, ok := seen[ig]
		if !ok {
			idx = uint32(len(seen))
			seen[ig] = idx

			var pos vecmath.Vec3
			if ig.pos >= 0 && ig.pos < len(positions) {
				pos = positions[ig.pos]
			}
			var normal vecmath.Vec3
			if ig.normal >= 0 && ig.normal < len(normals) {
				normal = normals[ig.normal]
			}

			var albedo, mat vecmath.Vec4
			if ig.material >= 0 && ig.material < len(materials) {
				albedo, mat = materialVertexAttributes(materials[ig.material])
			}

			mb.Pos = append(mb.Pos, pos)
			mb.Normal = append(mb.Normal, normal)
			mb.Albedo = append(mb.Albedo, albedo)
			mb.Material = append(mb.Material, mat)
			m.VertexCount++
		}
		mb.Indices = append(mb.Indices, idx)
	}

	return m, nil
}

// materialVertexAttributes packs one material into the albedo/material
// vertex attribute layout: albedo.w is alpha, material is
// (roughness, metallic, transmission, emission). Emission is scaled down
// by the brighter of emission and albedo, so the stored factor is at most 1
// and albedo times it reproduces the emission capped at the base color, and
// stays exactly zero on any channel the MTL left unset.
func materialVertexAttributes(mat material) (vecmath.Vec4, vecmath.Vec4) {
	albedo := vecmath.Vec4{X: mat.albedo.X, Y: mat.albedo.Y, Z: mat.albedo.Z, W: mat.alpha}

	denom := mat.albedo.Max(mat.emission)
	scaledEmission := mat.emission.Div(denom).Max(vecmath.Vec3{})
	if mat.emission.X == 0 {
		scaledEmission.X = 0
	}
	if mat.emission.Y == 0 {
		scaledEmission.Y = 0
	}
	if mat.emission.Z == 0 {
		scaledEmission.Z = 0
	}

	transmission := maxComponent(mat.transmission.X, mat.transmission.Y, mat.transmission.Z)
	emission := maxComponent(scaledEmission.X, scaledEmission.Y, scaledEmission.Z)

	material := vecmath.Vec4{X: mat.roughness, Y: mat.metallicness, Z: transmission, W: emission}
	return albedo, material
}

func maxComponent(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

type faceVertex struct {
	pos, tex, normal int
}

func parseFaceVertex(s string) faceVertex {
	parts := strings.Split(s, "/")
	fv := faceVertex{pos: -1, tex: -1, normal: -1}
	if len(parts) > 0 && parts[0] != "" {
		fv.pos = parseIndex(parts[0]) - 1
	}
	if len(parts) > 1 && parts[1] != "" {
		fv.tex = parseIndex(parts[1]) - 1
	}
	if len(parts) > 2 && parts[2] != "" {
		fv.normal = parseIndex(parts[2]) - 1
	}
	return fv
}
