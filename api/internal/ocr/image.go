package ocr

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"math-bot/api/internal/util"
)

// PrepareImage уменьшает картинку так, чтобы длинная сторона была не больше
// maxSide. Маленькие и нераспознаваемые форматы отдаются как есть.
func PrepareImage(data []byte, maxSide int) ([]byte, string, error) {
	if maxSide <= 0 {
		return data, util.SniffMimeHTTP(data), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, util.SniffMimeHTTP(data), nil
	}
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return data, util.SniffMimeHTTP(data), nil
	}

	small := resize.Thumbnail(uint(maxSide), uint(maxSide), img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, small); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}
