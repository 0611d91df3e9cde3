package meadow

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	previewBackground = color.RGBA{R: 24, G: 20, B: 16, A: 255}
	previewCulled     = color.RGBA{R: 70, G: 70, B: 60, A: 255}
	previewVisible    = color.RGBA{R: 90, G: 200, B: 70, A: 255}
	previewCamera     = color.RGBA{R: 230, G: 60, B: 50, A: 255}
	previewText       = color.RGBA{R: 230, G: 230, B: 220, A: 255}
)

// PreviewModule writes a top-down map of the field when the run finishes:
// culled blades dim, visible blades green, the camera red.
type PreviewModule struct {
	Path   string
	Size   int     // pixels per side
	Extent float32 // world units per side, centered on Center
	Center mgl32.Vec2
}

// Preview is the module's resource; Image holds the last rendered map.
type Preview struct {
	mod   PreviewModule
	Image *image.RGBA
}

func (mod PreviewModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Preview{mod: mod})

	app.UseSystem(
		System(previewSystem).
			InStage(Render).
			InState(OnEnter(Finished)),
	)
}

func previewSystem(p *Preview, grass *Grass, cam *Camera, t *Time, cmd *Commands) error {
	p.Image = renderPreview(p.mod, grass, cam, t.Frame)
	if p.mod.Path == "" {
		return nil
	}
	if err := writePNG(p.mod.Path, p.Image); err != nil {
		return err
	}
	cmd.Logger().Infof("preview written to %s", p.mod.Path)
	return nil
}

func renderPreview(mod PreviewModule, grass *Grass, cam *Camera, frame uint64) *image.RGBA {
	size := max(mod.Size, 64)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: previewBackground}, image.Point{}, draw.Src)

	extent := mod.Extent
	if extent <= 0 {
		extent = 24
	}
	scale := float32(size) / extent
	toPixel := func(p mgl32.Vec3) image.Point {
		x := (p.X()-mod.Center.X())*scale + float32(size)/2
		y := (p.Z()-mod.Center.Y())*scale + float32(size)/2
		return image.Pt(int(x), int(y))
	}
	dot := func(p image.Point, r int, c color.Color) {
		rect := image.Rect(p.X-r, p.Y-r, p.X+r+1, p.Y+r+1).Intersect(img.Bounds())
		draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}

	for _, b := range grass.Blades {
		dot(toPixel(b.Base()), 0, previewCulled)
	}
	if grass.Visible != nil {
		for _, b := range grass.Visible.Visible() {
			dot(toPixel(b.Base()), 0, previewVisible)
		}
	}
	dot(toPixel(cam.Eye), 2, previewCamera)

	caption := fmt.Sprintf("frame %d  visible %d/%d", frame, grass.LastStats.Visible, len(grass.Blades))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(previewText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(6, 16),
	}
	d.DrawString(caption)
	return img
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating preview directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating preview: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding preview: %w", err)
	}
	return nil
}
