// Package pathtracer implements the renderer's core integrator: for every
// pixel sample it fires a camera ray, shades whatever it hits with the
// bsdf package, estimates direct lighting from the sun via next event
// estimation against the atmosphere model, and follows indirect bounces
// up to a configured depth, combining NEE and BSDF sampling with multiple
// importance sampling exactly as the source renderer's path_trace_pixel
// does. RenderFrame parallelizes this across pixel rows with a plain
// goroutine worker pool; Scene and its BVH/mesh arenas are read-only once
// a render starts, so no locking is needed beyond aggregating the first
// error any worker hits.
package pathtracer

import (
	"math"
	"runtime"
	"sync"

	"github.com/tessera-render/tessera/atmosphere"
	"github.com/tessera-render/tessera/bsdf"
	"github.com/tessera-render/tessera/bvh"
	"github.com/tessera-render/tessera/config"
	"github.com/tessera-render/tessera/sampler"
	"github.com/tessera-render/tessera/scene"
	"github.com/tessera-render/tessera/vecmath"
)

// HitInfo describes what a primary or bounce ray landed on: either a
// triangle (with its interpolated, world-space shading frame and
// unpacked material) or the sky, represented as an emissive "surface"
// whose NeePdf lets the miss case participate in MIS against NEE the same
// way a hit surface does.
type HitInfo struct {
	THit float32
	Pos  vecmath.Vec3
	TBN  vecmath.Mat3

	Albedo       vecmath.Vec3
	Alpha        float32
	Roughness    float32
	Metallic     float32
	Transmission float32
	Emission     float32
	Eta          float32

	// NeePdf is the probability density of having sampled this direction
	// via NEE against the sun, used for MIS weighting when a BSDF-sampled
	// bounce ray misses everything and lands in the sky.
	NeePdf float32
}

const indexOfRefraction = 1.5

// TraceRay casts one ray against the scene's TLAS and builds the HitInfo
// for whatever it lands on. instances must be the exact, order-preserved
// list tlas was built over, e.g. from Scene.ResolveInstances.
func TraceRay(sc *scene.Scene, tlas bvh.Bvh, instances []scene.Instance, light scene.DirectionalLight, origin, dir vecmath.Vec3, tmin float32) (HitInfo, error) {
	q := sc.NewQuery(tlas, instances, origin, dir, tmin, 1e9)
	for {
		cont, err := q.Proceed()
		if err != nil {
			return HitInfo{}, err
		}
		if !cont {
			break
		}
		q.Confirm()
	}

	var hi HitInfo
	hi.THit = q.Closest.THit
	if hi.THit < 0 {
		return missInfo(light, dir), nil
	}

	inst := instances[q.Closest.InstanceID]
	m := inst.Mesh
	rot := vecmath.ExtractMat3(inst.Transform)

	triOffset := m.IndexOffset + q.Closest.PrimitiveID*3
	i0 := sc.MeshBuf.Indices[triOffset+0]
	i1 := sc.MeshBuf.Indices[triOffset+1]
	i2 := sc.MeshBuf.Indices[triOffset+2]

	n0 := sc.MeshBuf.Normal[m.BaseVertexOffset+i0]
	n1 := sc.MeshBuf.Normal[m.BaseVertexOffset+i1]
	n2 := sc.MeshBuf.Normal[m.BaseVertexOffset+i2]
	a0 := sc.MeshBuf.Albedo[m.BaseVertexOffset+i0]
	a1 := sc.MeshBuf.Albedo[m.BaseVertexOffset+i1]
	a2 := sc.MeshBuf.Albedo[m.BaseVertexOffset+i2]
	mat0 := sc.MeshBuf.Material[m.BaseVertexOffset+i0]
	mat1 := sc.MeshBuf.Material[m.BaseVertexOffset+i1]
	mat2 := sc.MeshBuf.Material[m.BaseVertexOffset+i2]

	bary := q.Closest.Barycentrics
	albedo := a0.Scale(bary.X).Add(a1.Scale(bary.Y)).Add(a2.Scale(bary.Z))
	mat := mat0.Scale(bary.X).Add(mat1.Scale(bary.Y)).Add(mat2.Scale(bary.Z))
	n := n0.Scale(bary.X).Add(n1.Scale(bary.Y)).Add(n2.Scale(bary.Z))
	n = rot.MulVec(n).Normalize()

	hi.Pos = origin.Add(dir.Scale(hi.THit))

	if q.Closest.BackFace {
		hi.Eta = indexOfRefraction
		n = n.Neg()
	} else {
		hi.Eta = 1 / indexOfRefraction
	}
	hi.TBN = vecmath.CreateTangentSpace(n)

	hi.Albedo = albedo.Vec3()
	hi.Alpha = albedo.W
	hi.Roughness = mat.X * mat.X
	hi.Metallic = mat.Y
	hi.Transmission = mat.Z
	hi.Emission = mat.W

	return hi, nil
}

// missInfo builds the HitInfo for a ray that hit nothing: the sky itself
// is shaded by the atmosphere pass, so all a miss contributes here is
// whether the ray looked straight at the sun disc, for MIS against NEE.
func missInfo(light scene.DirectionalLight, dir vecmath.Vec3) HitInfo {
	var hi HitInfo
	hi.THit = -1
	hi.Emission = 1

	visible := dir.Dot(light.Direction) > light.CosSolidAngle
	var neePdf float32
	if visible {
		neePdf = 1 / (2 * math.Pi * (1 - light.CosSolidAngle))
	}
	hi.NeePdf = neePdf

	factor := neePdf
	if factor == 0 {
		factor = 1
	}
	if visible {
		hi.Albedo = light.Color.Scale(factor)
	}
	return hi
}

// TraceShadowRay reports whether anything occludes the segment from
// origin along dir within [tmin, tmax]. A single Proceed call is enough:
// any candidate at all counts as an occluder, so there is no confirm loop.
func TraceShadowRay(sc *scene.Scene, tlas bvh.Bvh, instances []scene.Instance, origin, dir vecmath.Vec3, tmin, tmax float32) (bool, error) {
	q := sc.NewQuery(tlas, instances, origin, dir, tmin, tmax)
	return q.Proceed()
}

// GetCameraRay builds the world-space ray for film coordinate coord (in
// pixels, with a fractional offset for antialiasing already folded in) on
// an imageWidth x imageHeight raster, sampling the lens aperture from u
// when cam has a polygonal bokeh.
func GetCameraRay(cam scene.Camera, u, coord vecmath.Vec2, imageWidth, imageHeight float32) (dir, origin vecmath.Vec3) {
	uv := vecmath.Vec2{X: coord.X/imageWidth*2 - 1, Y: coord.Y/imageHeight*2 - 1}
	uv.X *= cam.AspectRatio
	uv.Y = -uv.Y

	aperturePos := vecmath.Vec2{}
	if cam.AperturePolygon > 3 {
		aperturePos = sampler.RegularPolygon(u, cam.ApertureAngle, cam.AperturePolygon).Scale(cam.ApertureRadius)
	}

	origin = vecmath.Vec3{X: aperturePos.X, Y: aperturePos.Y, Z: 0}
	dir = vecmath.Vec3{X: uv.X * cam.InvFocalLength, Y: uv.Y * cam.InvFocalLength, Z: -1}.Scale(cam.FocalDistance)
	dir = dir.Sub(origin).Normalize()

	dir = cam.Orientation.MulVec(dir)
	origin = cam.Orientation.MulVec(origin).Add(cam.Position)
	return dir, origin
}

// neeBranch samples a point on the sun's cone toward a shading point,
// shades it through the BSDF and weights it by MIS against the BSDF
// sampling strategy, mirroring nee_branch. view is the outgoing direction
// in the local shading frame (TBN's tangent space, Z along the normal).
func neeBranch(
	rng *sampler.RNG,
	atmo config.Atmosphere,
	sc *scene.Scene,
	tlas bvh.Bvh,
	instances []scene.Instance,
	light scene.DirectionalLight,
	minRayDist, maxRayDist float32,
	info HitInfo,
	view vecmath.Vec3,
) (vecmath.Vec3, error) {
	u := rng.Next4()
	lightDir := sampler.Cone(light.Direction, light.CosSolidAngle, vecmath.Vec2{X: u.X, Y: u.Y})
	neePdf := float32(1 / (2 * math.Pi * (1 - light.CosSolidAngle)))

	localLight := info.TBN.Transpose().MulVec(lightDir)
	mat := bsdf.Material{
		Albedo:       info.Albedo,
		Roughness:    info.Roughness,
		Metallic:     info.Metallic,
		Transmission: info.Transmission,
		Eta:          info.Eta,
	}
	attenuation, bsdfPdf := bsdf.Eval(localLight, view, mat)
	color := attenuation.Scale(neePdf).Mul(light.Color)

	if color.IsZero() {
		return vecmath.Vec3{}, nil
	}
	shadowed, err := TraceShadowRay(sc, tlas, instances, info.Pos, lightDir, minRayDist, maxRayDist)
	if err != nil {
		return vecmath.Vec3{}, err
	}
	if shadowed {
		return vecmath.Vec3{}, nil
	}

	misPdf := float32(1)
	if light.CosSolidAngle < 1 {
		misPdf = (neePdf*neePdf + bsdfPdf*bsdfPdf) / neePdf
	}

	color = color.Mul(atmosphere.Attenuation(atmo, u.W, atmo.PrimaryIterations, info.Pos, lightDir, maxRayDist))

	return color.Scale(1 / misPdf), nil
}

// TracePixel draws one path-traced sample for pixel (x, y) of subframe sf
// (instances must be its resolved instance list) and returns its
// contribution, unweighted by the sample count -- callers average
// SamplesPerPixel draws themselves.
func TracePixel(cfg config.Config, sc *scene.Scene, sf scene.Subframe, instances []scene.Instance, x, y, sampleIndex int) (vecmath.Vec3, error) {
	rng := sampler.NewRNG(uint32(x), uint32(y), int32(sampleIndex), cfg.Seed.RunID)

	u := rng.Next4()
	filmOffset := sampler.GaussianWeightedDisk(vecmath.Vec2{X: u.X, Y: u.Y}, 0.4).Add(vecmath.Vec2{X: 0.5, Y: 0.5})
	rayDir, rayOrigin := GetCameraRay(
		sf.Cam, vecmath.Vec2{X: u.Z, Y: u.W},
		vecmath.Vec2{X: float32(x) + filmOffset.X, Y: float32(y) + filmOffset.Y},
		float32(cfg.Image.Width), float32(cfg.Image.Height),
	)

	info, err := TraceRay(sc, sf.Tlas, instances, sf.Light, rayOrigin, rayDir, 0)
	if err != nil {
		return vecmath.Vec3{}, err
	}

	atmosLight := atmosphere.Light{Direction: sf.Light.Direction, Color: sf.Light.Color}
	attenuation, inScatter := atmosphere.Scattering(cfg.Atmosphere, &rng, atmosLight, rayOrigin, rayDir, info.THit)
	contribution := inScatter.Add(attenuation.Mul(info.Albedo).Scale(info.Emission))

	regularization := float32(1)
	for bounce := 0; bounce < cfg.Render.MaxBounces && info.THit > 0; bounce++ {
		view := info.TBN.Transpose().MulVec(rayDir.Neg())
		if view.Z < 1e-7 {
			view.Z = 1e-7
		}
		view = view.Normalize()

		neeColor, err := neeBranch(&rng, cfg.Atmosphere, sc, sf.Tlas, instances, sf.Light, cfg.Render.MinRayDist, cfg.Render.MaxRayDist, info, view)
		if err != nil {
			return vecmath.Vec3{}, err
		}
		contribution = contribution.Add(attenuation.Mul(neeColor))

		bu := rng.Next4()
		mat := bsdf.Material{
			Albedo:       info.Albedo,
			Roughness:    info.Roughness,
			Metallic:     info.Metallic,
			Transmission: info.Transmission,
			Eta:          info.Eta,
		}
		tdir, bsdfAttenuation, bsdfPdf := bsdf.Sample(vecmath.Vec3{X: bu.X, Y: bu.Y, Z: bu.Z}, view, mat)

		rayDir = info.TBN.MulVec(tdir).Normalize()
		rayOrigin = info.Pos
		info, err = TraceRay(sc, sf.Tlas, instances, sf.Light, rayOrigin, rayDir, cfg.Render.MinRayDist)
		if err != nil {
			return vecmath.Vec3{}, err
		}

		var misPdf float32
		if bsdfPdf < 0 {
			misPdf = -bsdfPdf
		} else {
			misPdf = (info.NeePdf*info.NeePdf + bsdfPdf*bsdfPdf) / bsdfPdf
		}

		attenuation = attenuation.Mul(bsdfAttenuation)

		bounceLight := atmosphere.Light{Direction: sf.Light.Direction, Color: sf.Light.Color}
		bounceAtten, bounceInScatter := atmosphere.Scattering(cfg.Atmosphere, &rng, bounceLight, rayOrigin, rayDir, info.THit)

		contribution = contribution.Add(
			attenuation.Mul(bounceInScatter.Add(bounceAtten.Mul(info.Albedo).Scale(info.Emission))).Scale(1 / misPdf),
		)
		attenuation = attenuation.Mul(bounceAtten.Scale(1 / abs32(bsdfPdf)))

		// Path space regularization: each bounce progressively roughens
		// the surface it lands on, so fireflies from near-specular paths
		// sampled with a low-probability PDF get suppressed instead of
		// blowing up the estimator.
		if bsdfPdf > 0 {
			regularization *= max32(1-cfg.Render.RegularizationGamma/pow32(bsdfPdf, 0.25), 0)
		}
		info.Roughness = 1 - (1-info.Roughness)*regularization
	}

	return contribution, nil
}

// Tonemap applies a simplified ACES fit and sRGB gamma correction to a
// linear color and packs it as 8-bit BGRA, matching tonemap_pixel's
// output layout.
func Tonemap(color vecmath.Vec3) [4]byte {
	num := color.Mul(color.Scale(2.51).Add(vecmath.Vec3{X: 0.03, Y: 0.03, Z: 0.03}))
	den := color.Mul(color.Scale(2.43).Add(vecmath.Vec3{X: 0.59, Y: 0.59, Z: 0.59})).Add(vecmath.Vec3{X: 0.14, Y: 0.14, Z: 0.14})
	aces := num.Div(den)

	gamma := func(c float32) float32 {
		if c < 0.0031308 {
			return c * 12.92
		}
		return pow32(c, 1/2.4)*1.055 - 0.055
	}
	corrected := vecmath.Vec3{X: gamma(aces.X), Y: gamma(aces.Y), Z: gamma(aces.Z)}
	corrected = corrected.Clamp(vecmath.Vec3{}, vecmath.Vec3{X: 1, Y: 1, Z: 1})

	round := func(c float32) byte { return byte(math.Round(float64(c) * 255)) }
	return [4]byte{round(corrected.Z), round(corrected.Y), round(corrected.X), 255}
}

// RenderFrame path traces every pixel of one frame across a pool of
// worker goroutines, one per available CPU, each claiming whole pixel
// rows from a shared channel. subframes and perSubframeInstances must be
// parallel slices: perSubframeInstances[i] is subframes[i].Tlas's
// resolved instance list (Scene.ResolveInstances). Scene is read-only
// during rendering, so workers need no synchronization against it; the
// only shared mutable state is the first error any worker observes.
func RenderFrame(cfg config.Config, sc *scene.Scene, subframes []scene.Subframe, perSubframeInstances [][]scene.Instance) ([]byte, error) {
	width, height := cfg.Image.Width, cfg.Image.Height
	pixels := make([]byte, width*height*4)

	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				for x := 0; x < width; x++ {
					var sum vecmath.Vec3
					failed := false
					for s := 0; s < cfg.Render.SamplesPerPixel; s++ {
						subframeIndex := s / cfg.Render.SamplesPerMotionBlurStep
						if subframeIndex >= len(subframes) {
							subframeIndex = len(subframes) - 1
						}
						color, err := TracePixel(cfg, sc, subframes[subframeIndex], perSubframeInstances[subframeIndex], x, y, s)
						if err != nil {
							mu.Lock()
							if firstErr == nil {
								firstErr = err
							}
							mu.Unlock()
							failed = true
							break
						}
						sum = sum.Add(color)
					}
					if failed {
						return
					}
					avg := sum.Scale(1 / float32(cfg.Render.SamplesPerPixel))
					bgra := Tonemap(avg)
					idx := (y*width + x) * 4
					pixels[idx+0] = bgra[0]
					pixels[idx+1] = bgra[1]
					pixels[idx+2] = bgra[2]
					pixels[idx+3] = bgra[3]
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return pixels, nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func pow32(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}
