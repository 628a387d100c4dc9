// Package scene assembles loaded meshes, their acceleration structures,
// instances, cameras and lights into the data the path tracer renders
// against. It owns the two arenas (mesh buffers and BVH buffers) every
// mesh and BVH in the scene is appended to, and the instance list that
// indexes into them.
package scene

import (
	"errors"
	"math"

	"github.com/tessera-render/tessera/bvh"
	"github.com/tessera-render/tessera/meshio"
	"github.com/tessera-render/tessera/rayquery"
	"github.com/tessera-render/tessera/vecmath"
)

// MeshBuffers and Mesh are the vertex/index arena and per-mesh handle type,
// reused directly from meshio rather than duplicated here: meshio owns the
// OBJ/MTL parsing concern and scene owns assembling the parsed meshes into
// a renderable world, so the handle passes from one to the other unchanged.
type MeshBuffers = meshio.Buffers
type Mesh = meshio.Mesh

// ErrUnknownMesh is returned when an instance names a mesh that was never
// loaded with LoadMesh.
var ErrUnknownMesh = errors.New("scene: unknown mesh name")

type meshEntry struct {
	mesh Mesh
	blas bvh.Bvh
}

// Instance places one loaded mesh's BLAS into the scene with a transform,
// mirroring tlas_instance from the source renderer.
type Instance struct {
	Blas         bvh.Bvh
	Mesh         Mesh
	Transform    vecmath.Mat4
	InvTransform vecmath.Mat4
}

// Camera describes one subframe's view and lens parameters.
type Camera struct {
	Orientation     vecmath.Mat3
	Position        vecmath.Vec3
	AspectRatio     float32
	InvFocalLength  float32
	FocalDistance   float32
	ApertureAngle   float32
	AperturePolygon uint32
	ApertureRadius  float32
}

// DirectionalLight is the scene's single sun/sky light.
type DirectionalLight struct {
	Direction     vecmath.Vec3
	Color         vecmath.Vec3
	CosSolidAngle float32
}

// Subframe is one motion-blur sample's worth of frame-varying state: its
// own camera pose, light direction and a TLAS over whichever instances are
// visible at that instant.
type Subframe struct {
	Tlas  bvh.Bvh
	Cam   Camera
	Light DirectionalLight
}

// Scene owns every arena the renderer reads from during a frame.
type Scene struct {
	MeshBuf MeshBuffers
	BvhBuf  bvh.Buffers

	meshes map[string]meshEntry

	Instances           []Instance
	StaticInstanceCount int
	Subframes           []Subframe
}

// New returns an empty scene ready to have meshes loaded into it.
func New() *Scene {
	return &Scene{meshes: make(map[string]meshEntry)}
}

// LoadMesh parses the OBJ file at objPath, builds its BLAS and registers
// it under name so later AddInstance calls can reference it.
func (s *Scene) LoadMesh(name, objPath string) error {
	m, err := meshio.Load(&s.MeshBuf, objPath)
	if err != nil {
		return err
	}

	bounds := func(triangle int) (vecmath.Vec3, vecmath.Vec3) {
		base := m.IndexOffset + uint32(triangle)*3
		i0 := s.MeshBuf.Indices[base+0]
		i1 := s.MeshBuf.Indices[base+1]
		i2 := s.MeshBuf.Indices[base+2]
		p0 := s.MeshBuf.Pos[m.BaseVertexOffset+i0]
		p1 := s.MeshBuf.Pos[m.BaseVertexOffset+i1]
		p2 := s.MeshBuf.Pos[m.BaseVertexOffset+i2]
		min := p0.Min(p1).Min(p2)
		max := p0.Max(p1).Max(p2)
		return min, max
	}

	blas, err := bvh.BuildBLAS(int(m.TriangleCount), bounds, &s.BvhBuf)
	if err != nil {
		return err
	}

	s.meshes[name] = meshEntry{mesh: m, blas: blas}
	return nil
}

// AddInstanceTransform places an instance of the named mesh with an
// explicit transform, exactly mirroring the source's add_instance(scene,
// name, mat4) overload.
func (s *Scene) AddInstanceTransform(name string, transform vecmath.Mat4) error {
	entry, ok := s.meshes[name]
	if !ok {
		return ErrUnknownMesh
	}
	s.Instances = append(s.Instances, Instance{
		Blas:         entry.blas,
		Mesh:         entry.mesh,
		Transform:    transform,
		InvTransform: transform.Inverse4(),
	})
	return nil
}

// AddInstance places an instance of the named mesh from position, Euler
// angles in degrees (pitch, yaw, roll) and scale, mirroring the source's
// add_instance(scene, name, pos, pitch_yaw_roll, scale) overload.
func (s *Scene) AddInstance(name string, pos, pitchYawRollDegrees, scale vecmath.Vec3) error {
	const deg2rad = math.Pi / 180
	rotation := vecmath.RotationEuler(
		pitchYawRollDegrees.X*deg2rad,
		pitchYawRollDegrees.Y*deg2rad,
		pitchYawRollDegrees.Z*deg2rad,
	)
	transform := vecmath.Rotation4(rotation).Mul(vecmath.Scaling(scale))
	transform = vecmath.Translation(pos).Mul(transform)
	return s.AddInstanceTransform(name, transform)
}

// triangleSource adapts a slice of instances (parallel to whatever slice
// was handed to rayquery.New) into a rayquery.TriangleSource over this
// scene's mesh arena.
type triangleSource struct {
	mb     *MeshBuffers
	meshes []Mesh
}

func (t triangleSource) Triangle(instanceIndex, primitiveID uint32) (vecmath.Vec3, vecmath.Vec3, vecmath.Vec3) {
	m := t.meshes[instanceIndex]
	base := m.IndexOffset + primitiveID*3
	i0 := t.mb.Indices[base+0]
	i1 := t.mb.Indices[base+1]
	i2 := t.mb.Indices[base+2]
	return t.mb.Pos[m.BaseVertexOffset+i0], t.mb.Pos[m.BaseVertexOffset+i1], t.mb.Pos[m.BaseVertexOffset+i2]
}

func (s *Scene) triangleSourceFor(instances []Instance) triangleSource {
	meshes := make([]Mesh, len(instances))
	for i, inst := range instances {
		meshes[i] = inst.Mesh
	}
	return triangleSource{mb: &s.MeshBuf, meshes: meshes}
}

func (s *Scene) rayqueryInstances(instances []Instance) []rayquery.Instance {
	out := make([]rayquery.Instance, len(instances))
	for i, inst := range instances {
		out[i] = rayquery.Instance{Blas: inst.Blas, Transform: inst.Transform, InvTransform: inst.InvTransform}
	}
	return out
}

// buildTLASOver builds a TLAS over exactly the given instances (in order)
// and returns the TLAS handle together with the matching rayquery instance
// list and triangle source, both in the same order as instances, ready to
// pass to rayquery.New.
func (s *Scene) buildTLASOver(instances []Instance, bcOut *bvh.Buffers) (bvh.Bvh, []rayquery.Instance, triangleSource, error) {
	blasInstances := make([]bvh.Instance, len(instances))
	for i, inst := range instances {
		blasInstances[i] = bvh.Instance{Blas: inst.Blas, Transform: inst.Transform}
	}
	tlas, err := bvh.BuildTLAS(blasInstances, &s.BvhBuf, bcOut)
	if err != nil {
		return bvh.Bvh{}, nil, triangleSource{}, err
	}
	return tlas, s.rayqueryInstances(instances), s.triangleSourceFor(instances), nil
}

// pullInstanceList concatenates a static range and a dynamic range of
// s.Instances, mirroring pull_instance_list: static (frame-constant)
// instances are listed first, then whichever dynamic instances belong to
// the current subframe.
func (s *Scene) pullInstanceList(staticBegin, staticEnd, dynamicBegin, dynamicEnd int) []Instance {
	out := make([]Instance, 0, (staticEnd-staticBegin)+(dynamicEnd-dynamicBegin))
	out = append(out, s.Instances[staticBegin:staticEnd]...)
	out = append(out, s.Instances[dynamicBegin:dynamicEnd]...)
	return out
}

// BuildSubframeTLAS builds sf.Tlas over the static instance range plus one
// subframe's dynamic instance range, appending its nodes/links to s.BvhBuf.
func (s *Scene) BuildSubframeTLAS(sf *Subframe, staticEnd, dynamicBegin, dynamicEnd int) error {
	instances := s.pullInstanceList(0, staticEnd, dynamicBegin, dynamicEnd)
	tlas, _, _, err := s.buildTLASOver(instances, &s.BvhBuf)
	if err != nil {
		return err
	}
	sf.Tlas = tlas
	return nil
}

// ResolveInstances concatenates the static instance range and one
// subframe's dynamic instance range into the exact instance list its TLAS
// was built over, in the same order BuildSubframeTLAS used. Callers that
// issue many queries against one subframe (the path tracer) should resolve
// this once per subframe rather than once per ray.
func (s *Scene) ResolveInstances(staticEnd, dynamicBegin, dynamicEnd int) []Instance {
	return s.pullInstanceList(0, staticEnd, dynamicBegin, dynamicEnd)
}

// NewQuery starts a ray query against tlas, given the resolved instance
// list that tlas was built over (see ResolveInstances).
func (s *Scene) NewQuery(tlas bvh.Bvh, instances []Instance, origin, dir vecmath.Vec3, tmin, tmax float32) rayquery.Query {
	rqInstances := s.rayqueryInstances(instances)
	tris := s.triangleSourceFor(instances)
	return rayquery.New(tlas, rqInstances, &s.BvhBuf, tris, origin, dir, tmin, tmax)
}

// Query starts a ray query against one subframe's TLAS, using the static
// plus that subframe's dynamic instance range to resolve hits back to
// triangle data. Both ranges must be the exact ones BuildSubframeTLAS was
// called with, or instance indices returned by the query will resolve to
// the wrong mesh. Prefer ResolveInstances+NewQuery when issuing many
// queries against the same subframe.
func (s *Scene) Query(sf Subframe, staticEnd, dynamicBegin, dynamicEnd int, origin, dir vecmath.Vec3, tmin, tmax float32) rayquery.Query {
	instances := s.ResolveInstances(staticEnd, dynamicBegin, dynamicEnd)
	return s.NewQuery(sf.Tlas, instances, origin, dir, tmin, tmax)
}
