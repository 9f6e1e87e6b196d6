package transcode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xADE/nas-game/internal/apperr"
	"github.com/0xADE/nas-game/internal/fileutil"
	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp"
)

// Quality is the lossy WebP quality used for every cover
const Quality = 90

// Size is a target width and height in pixels
type Size struct {
	Width  int
	Height int
}

// DefaultSize is the cover grid size
var DefaultSize = Size{Width: 600, Height: 900}

// OutputPath returns the file Transcode writes for input
func OutputPath(input, outDir string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+".webp")
}

// Transcode decodes input, resizes it to exactly size when size is not nil,
// and writes it as WebP to outDir/<stem>.webp. Nothing is written on failure.
func Transcode(input, outDir string, size *Size) error {
	f, err := os.Open(input)
	if err != nil {
		return apperr.New(apperr.FailedToReadFile, "transcode", input, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return apperr.New(apperr.FailedToReadFile, "transcode", input, err)
	}

	if size != nil {
		if size.Width <= 0 || size.Height <= 0 {
			return apperr.New(apperr.FailedToEncode, "transcode", input,
				fmt.Errorf("invalid size %dx%d", size.Width, size.Height))
		}
		img = imaging.Resize(img, size.Width, size.Height, imaging.Linear)
	}

	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, Quality)
	if err != nil {
		return apperr.New(apperr.FailedToEncode, "transcode", input, err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		return apperr.New(apperr.FailedToEncode, "transcode", input, err)
	}

	out := OutputPath(input, outDir)
	if err := fileutil.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
		return apperr.New(apperr.FailedToWrite, "transcode", out, err)
	}
	return nil
}
