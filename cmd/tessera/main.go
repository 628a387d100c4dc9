// Command tessera path traces a scene to a sequence of BMP frames (plus an
// optional WebP preview per frame), mirroring the original renderer's
// main(): load a scene, loop over frames applying any animation, render
// each one, and write it out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tessera-render/tessera/config"
	"github.com/tessera-render/tessera/imageio"
	"github.com/tessera-render/tessera/pathtracer"
	"github.com/tessera-render/tessera/scene"
)

func main() {
	outDir := flag.String("out", "output", "directory frames are written to")
	frameCount := flag.Int("frames", 1, "number of frames to render")
	testing := flag.Bool("testing", false, "use the fast, low-sample Testing config instead of Default")
	webpPreview := flag.Bool("webp-preview", false, "also write a WebP preview alongside each BMP frame")
	flag.Parse()

	cfg := config.Default()
	if *testing {
		cfg = config.Testing()
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("tessera: creating output directory: %v", err)
	}

	sc, anim, state, staticEnd, err := buildScene()
	if err != nil {
		log.Fatalf("tessera: building scene: %v", err)
	}

	for frameIndex := 0; frameIndex < *frameCount; frameIndex++ {
		anim.Play(float32(frameIndex) / float32(cfg.FrameRate))
		cam, light := state.subframe()

		sf := scene.Subframe{Cam: cam, Light: light}
		if err := sc.BuildSubframeTLAS(&sf, staticEnd, staticEnd, staticEnd); err != nil {
			log.Fatalf("tessera: frame %d: building TLAS: %v", frameIndex, err)
		}
		instances := sc.ResolveInstances(staticEnd, staticEnd, staticEnd)

		pixels, err := pathtracer.RenderFrame(cfg, sc, []scene.Subframe{sf}, [][]scene.Instance{instances})
		if err != nil {
			log.Fatalf("tessera: frame %d: rendering: %v", frameIndex, err)
		}

		name := fmt.Sprintf("frame_%04d", frameIndex)
		bmpPath := filepath.Join(*outDir, name+".bmp")
		if err := imageio.WriteBMP(bmpPath, cfg.Image.Width, cfg.Image.Height, pixels); err != nil {
			log.Fatalf("tessera: frame %d: writing bmp: %v", frameIndex, err)
		}

		if *webpPreview {
			webpPath := filepath.Join(*outDir, name+".webp")
			if err := imageio.WriteWebPPreview(webpPath, cfg.Image.Width, cfg.Image.Height, pixels, 80); err != nil {
				log.Fatalf("tessera: frame %d: writing webp preview: %v", frameIndex, err)
			}
		}

		log.Printf("tessera: wrote %s", bmpPath)
	}
}
