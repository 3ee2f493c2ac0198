package data

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Essential: Registers JPEG format
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/b0tShaman/convnet/ml"
)

// ImageToTensor converts img into a 3-channel (R, G, B) tensor with values in [0, 1].
// When targetW and targetH are positive the image is resized first.
func ImageToTensor(img image.Image, targetW, targetH int) *ml.Tensor {
	src := img
	if targetW > 0 && targetH > 0 {
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Rect, img, img.Bounds(), draw.Over, nil)
		src = dst
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t := ml.NewZeroTensor(3, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			t.Channels[0].Set(y, x, float64(r>>8)/255)
			t.Channels[1].Set(y, x, float64(g>>8)/255)
			t.Channels[2].Set(y, x, float64(b>>8)/255)
		}
	}
	return t
}

// TensorToImage renders a tensor as an image. One channel gives grayscale, three or
// more give RGB from the first three. Values are clamped to [0, 1].
func TensorToImage(t *ml.Tensor) (*image.RGBA, error) {
	if t.Depth() != 1 && t.Depth() < 3 {
		return nil, fmt.Errorf("cannot render %s: need 1 or at least 3 channels", t)
	}
	w, h := t.Cols(), t.Rows()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if t.Depth() == 1 {
				v := toByte(t.Channels[0].At(y, x))
				img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
				continue
			}
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(t.Channels[0].At(y, x)),
				G: toByte(t.Channels[1].At(y, x)),
				B: toByte(t.Channels[2].At(y, x)),
				A: 255,
			})
		}
	}
	return img, nil
}

// LoadImage decodes a JPEG or PNG file into a tensor of targetW x targetH pixels.
func LoadImage(path string, targetW, targetH int) (*ml.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ImageToTensor(src, targetW, targetH), nil
}

// SaveImage writes t as a PNG file.
func SaveImage(path string, t *ml.Tensor) error {
	img, err := TensorToImage(t)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Grayscale averages the first three channels with the standard luma weights.
func Grayscale(t *ml.Tensor) *ml.Tensor {
	if t.Depth() < 3 {
		return t.Clone()
	}
	return ml.NewTensor(
		t.Channels[0].Scale(0.299).
			Add(t.Channels[1].Scale(0.587)).
			Add(t.Channels[2].Scale(0.114)),
	)
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
