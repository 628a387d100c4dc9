package main

import (
	"math"
	"os"
	"path/filepath"

	"github.com/tessera-render/tessera/scene"
	"github.com/tessera-render/tessera/vecmath"
)

// groundPlaneOBJ is a flat 200x200 quad centered on the origin, the same
// shape load_scene built its terrain instance from before this module
// generalized terrain loading to an arbitrary OBJ path. It exists so
// cmd/tessera is a runnable program out of the box, with no external
// asset to fetch.
const groundPlaneOBJ = `
v -100 0 -100
v 100 0 -100
v 100 0 100
v -100 0 100
vn 0 1 0
f 1//1 2//1 3//1
f 1//1 3//1 4//1
`

// sceneState bundles the animated values an Animator writes into and the
// orbiting camera/sun those values drive, so the per-frame Subframe can be
// rebuilt cheaply without touching the instance list or its BVH.
type sceneState struct {
	cameraOrbitRadians float32
	sunElevationRadians float32
}

func (st *sceneState) subframe() (scene.Camera, scene.DirectionalLight) {
	orbit := vecmath.RotationEuler(0, st.cameraOrbitRadians, 0)
	camPos := orbit.MulVec(vecmath.Vec3{X: 0, Y: 8, Z: 20})
	// The camera looks down its local -Z, so the third column points away
	// from the origin for the view to face it.
	back := camPos.Normalize()
	right := vecmath.Vec3{X: 0, Y: 1, Z: 0}.Cross(back).Normalize()
	up := back.Cross(right)

	cam := scene.Camera{
		Orientation:    vecmath.Mat3{Cols: [3]vecmath.Vec3{right, up, back}},
		Position:       camPos,
		AspectRatio:    16.0 / 9.0,
		InvFocalLength: 1.0 / 1.5,
		FocalDistance:  1,
	}

	sunDir := vecmath.RotationEuler(-st.sunElevationRadians, 0, 0).MulVec(vecmath.Vec3{X: 0, Y: 0, Z: 1})
	light := scene.DirectionalLight{
		Direction:     sunDir.Normalize(),
		Color:         vecmath.Vec3{X: 1, Y: 1, Z: 1},
		CosSolidAngle: 0.99995,
	}

	return cam, light
}

// buildScene assembles the scene cmd/tessera renders: a single ground
// plane instance, lit by a sun that climbs over the course of the clip
// and a camera that orbits it, mirroring the shape of load_scene's
// terrain-plus-animation-track setup without its hardcoded asset list.
func buildScene() (sc *scene.Scene, anim *scene.Animator, state *sceneState, staticEnd int, err error) {
	dir, err := os.MkdirTemp("", "tessera-scene")
	if err != nil {
		return nil, nil, nil, 0, err
	}
	objPath := filepath.Join(dir, "ground.obj")
	if err := os.WriteFile(objPath, []byte(groundPlaneOBJ), 0o644); err != nil {
		return nil, nil, nil, 0, err
	}

	sc = scene.New()
	if err := sc.LoadMesh("ground", objPath); err != nil {
		return nil, nil, nil, 0, err
	}
	if err := sc.AddInstance("ground", vecmath.Vec3{}, vecmath.Vec3{}, vecmath.Vec3{X: 1, Y: 1, Z: 1}); err != nil {
		return nil, nil, nil, 0, err
	}
	staticEnd = len(sc.Instances)

	state = &sceneState{}
	anim = scene.NewAnimator([]scene.Stop{
		{Start: 0, Duration: 10, From: 0, To: 2 * math.Pi, Target: &state.cameraOrbitRadians},
		{Start: 0, Duration: 10, From: 0.1, To: 1.2, Target: &state.sunElevationRadians},
	})

	return sc, anim, state, staticEnd, nil
}
