package recognize

import (
	"bytes"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"math"

	"github.com/rotisserie/eris"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// DefaultMaxDim is the longest side, in pixels, of an image sent to the
// recognizer.
const DefaultMaxDim = 512

// MaxSourcePixels bounds the decoded size of an upload. Compressed formats
// can declare far more pixels than their byte size suggests.
const MaxSourcePixels = 40_000_000

// ErrUnsupportedImage means the upload could not be decoded as an image.
var ErrUnsupportedImage = eris.New("unsupported or corrupt image")

// Image is an encoded photo ready to send to a recognizer.
type Image struct {
	MediaType string
	Data      []byte
}

// PrepareImage decodes a JPEG, PNG, GIF or WebP photo, shrinks its longest
// side to maxDim and re-encodes it as JPEG. Smaller images are re-encoded
// without scaling.
func PrepareImage(data []byte, maxDim int) (Image, error) {
	if len(data) == 0 {
		return Image{}, eris.Wrap(ErrUnsupportedImage, "empty upload")
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, eris.Wrap(ErrUnsupportedImage, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return Image{}, eris.Wrapf(ErrUnsupportedImage, "%dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxSourcePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, eris.Wrap(ErrUnsupportedImage, err.Error())
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Image{}, eris.Wrapf(ErrUnsupportedImage, "%s has empty bounds", format)
	}

	if longest := max(w, h); longest > maxDim {
		scale := float64(maxDim) / float64(longest)
		nw := max(1, int(math.Round(float64(w)*scale)))
		nh := max(1, int(math.Round(float64(h)*scale)))

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return Image{}, eris.Wrap(err, "encode jpeg")
	}
	return Image{MediaType: "image/jpeg", Data: buf.Bytes()}, nil
}
