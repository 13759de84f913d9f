package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	// регистрация форматов для image.Decode
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/DRSN-tech/product-search/pkg/e"
	"golang.org/x/image/draw"
)

// Prepare декодирует растровое изображение, приводит его к RGB, масштабирует
// так, чтобы короткая сторона стала равна size (Catmull-Rom), и вырезает
// центральный квадрат size×size. Результат кодируется в PNG.
// Любые байты, не являющиеся поддерживаемым изображением, дают e.ErrDecode.
func Prepare(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, e.Wrap("empty image", e.ErrDecode)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Join("decode", e.ErrDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, e.Wrap(format+": zero-sized image", e.ErrDecode)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	// прозрачные области заливаются белым, альфа-канал отбрасывается
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, cropRect(bounds.Dx(), bounds.Dy(), size), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, e.Wrap("encode", err)
	}

	return buf.Bytes(), nil
}

// cropRect возвращает прямоугольник, в который масштабируется исходное
// изображение w×h: короткая сторона равна size, длинная пропорциональна,
// а смещение центрирует его на холсте size×size. Всё за пределами холста обрезается.
func cropRect(w, h, size int) image.Rectangle {
	sw, sh := size, size
	if w > h {
		sw = size * w / h
	} else if h > w {
		sh = size * h / w
	}

	left := int(math.Round(float64(sw-size) / 2))
	top := int(math.Round(float64(sh-size) / 2))

	return image.Rect(-left, -top, sw-left, sh-top)
}

// Validate проверяет, что байты декодируются как поддерживаемое изображение,
// не декодируя пиксели целиком.
func Validate(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return e.Join("decode", e.ErrDecode, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return e.Wrap("zero-sized image", e.ErrDecode)
	}
	return nil
}
