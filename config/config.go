// Package config collects every render-time constant the path tracer
// needs: image resolution, sample counts, ray tracing tolerances and the
// atmosphere model's physical constants. Everything lives in one struct so
// a caller can build a custom Config rather than being stuck with the two
// hardcoded presets this module ships (Default and Testing), mirroring the
// original program's compile-time TESTING switch but as ordinary data.
package config

import "github.com/tessera-render/tessera/vecmath"

// Image describes the output raster.
type Image struct {
	Width, Height int
}

// Render describes sampling and ray tracing parameters.
type Render struct {
	SamplesPerPixel        int
	MaxBounces             int
	SamplesPerMotionBlurStep int
	MinRayDist             float32
	MaxRayDist             float32
	RegularizationGamma    float32
}

// Seed bundles the per-run constant mixed into every pixel's RNG seed. In
// the original this was a hardcoded student ID; this module treats it as
// ordinary run configuration so a caller can vary it, while still
// defaulting to the original value for a faithful testing preset.
type Seed struct {
	RunID uint32
}

// Atmosphere holds the Nishita sky model's physical constants.
type Atmosphere struct {
	EarthRadius               float32
	Height                    float32
	PrimaryIterations         int
	SecondaryIterations       int
	RayleighCoefficient       vecmath.Vec3
	RayleighScaleHeight       float32
	MieCoefficient            vecmath.Vec3
	MieAnisotropy             float32
	MieScaleHeight            float32
}

// Config bundles everything a render needs.
type Config struct {
	Image      Image
	Render     Render
	Seed       Seed
	Atmosphere Atmosphere
	FrameRate  int
}

// DefaultAtmosphere returns Earth's atmosphere, the only one this module
// models.
func DefaultAtmosphere() Atmosphere {
	return Atmosphere{
		EarthRadius:         6.3781e6,
		Height:              1.0e5,
		PrimaryIterations:   8,
		SecondaryIterations: 4,
		RayleighCoefficient: vecmath.Vec3{X: 5.8e-6, Y: 13.6e-6, Z: 33.1e-6},
		RayleighScaleHeight: 7994.0,
		MieCoefficient:      vecmath.Vec3{X: 4.0e-6, Y: 4.0e-6, Z: 4.0e-6},
		MieAnisotropy:       0.80,
		MieScaleHeight:      1200.0,
	}
}

func commonRender(samples, bounces int) Render {
	return Render{
		SamplesPerPixel:          samples,
		MaxBounces:               bounces,
		SamplesPerMotionBlurStep: 8,
		MinRayDist:               1e-4,
		MaxRayDist:               1e9,
		RegularizationGamma:      0.15,
	}
}

// Default returns the production render settings: 1920x1080 at 1024
// samples per pixel with 5 bounces.
func Default() Config {
	return Config{
		Image:      Image{Width: 1920, Height: 1080},
		Render:     commonRender(1024, 5),
		Seed:       Seed{RunID: 152121358},
		Atmosphere: DefaultAtmosphere(),
		FrameRate:  30,
	}
}

// Testing returns faster, lower-quality render settings suitable for unit
// tests and quick local iteration: 640x360 at 256 samples per pixel with
// 4 bounces.
func Testing() Config {
	return Config{
		Image:      Image{Width: 640, Height: 360},
		Render:     commonRender(256, 4),
		Seed:       Seed{RunID: 152121358},
		Atmosphere: DefaultAtmosphere(),
		FrameRate:  30,
	}
}
