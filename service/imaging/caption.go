package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/mechapengu/postpilot/model"
)

// Caption draws meme-style captions onto the image at path, rewriting the
// file in place. Text is centered in white with a black outline so it stays
// readable on any background. Empty captions are skipped; when both are
// empty the file is left untouched.
func Caption(path, top, bottom string) error {
	if top == "" && bottom == "" {
		return nil
	}
	src, format, err := decodeFile(path)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %v: %w", path, err, model.ErrImageFailed)
	}
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse caption font: %v: %w", err, model.ErrImageFailed)
	}
	margin := bounds.Dy() / 20
	if top != "" {
		if err := drawCaption(canvas, fnt, top, true, margin); err != nil {
			return err
		}
	}
	if bottom != "" {
		if err := drawCaption(canvas, fnt, bottom, false, margin); err != nil {
			return err
		}
	}
	return encodeFile(path, canvas, format)
}

// drawCaption renders a single caption line, shrinking the face until the
// text fits the image width.
func drawCaption(canvas *image.RGBA, fnt *opentype.Font, text string, top bool, margin int) error {
	bounds := canvas.Bounds()
	size := float64(bounds.Dx()) / 10
	const minSize = 12

	var face font.Face
	var width fixed.Int26_6
	for {
		candidate, err := opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return fmt.Errorf("failed to build caption face: %v: %w", err, model.ErrImageFailed)
		}
		measured := font.MeasureString(candidate, text)
		if measured.Ceil() <= bounds.Dx()-2*margin || size <= minSize {
			face, width = candidate, measured
			break
		}
		_ = candidate.Close()
		size *= 0.9
	}
	defer face.Close()

	metrics := face.Metrics()
	x := bounds.Min.X + (bounds.Dx()-width.Ceil())/2
	var y int
	if top {
		y = bounds.Min.Y + margin + metrics.Ascent.Ceil()
	} else {
		y = bounds.Max.Y - margin - metrics.Descent.Ceil()
	}

	outline := int(size / 15)
	if outline < 1 {
		outline = 1
	}
	for _, offset := range [][2]int{{-outline, 0}, {outline, 0}, {0, -outline}, {0, outline}} {
		drawString(canvas, face, text, x+offset[0], y+offset[1], color.Black)
	}
	drawString(canvas, face, text, x, y, color.White)
	return nil
}

func drawString(dst *image.RGBA, face font.Face, text string, x, y int, col color.Color) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

// encodeFile rewrites the image preserving the source format; anything that
// is not jpeg falls back to png.
func encodeFile(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite image %s: %v: %w", path, err, model.ErrImageFailed)
	}
	defer f.Close()
	switch format {
	case "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode image %s: %v: %w", path, err, model.ErrImageFailed)
	}
	return nil
}
