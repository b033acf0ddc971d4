package intake

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/smallbiznis/snapcount/internal/config"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage      = errors.New("image_empty")
	ErrUnsupportedType = errors.New("image_type_unsupported")
	ErrImageTooLarge   = errors.New("image_too_large")
)

var Module = fx.Module("intake",
	fx.Provide(New),
)

// Intake validates uploaded images and shrinks them before estimation.
type Intake struct {
	holder *config.IntakeConfigHolder
	log    *zap.Logger
}

func New(holder *config.IntakeConfigHolder, log *zap.Logger) *Intake {
	return &Intake{holder: holder, log: log.Named("intake")}
}

// Validate checks the declared MIME type and the raw size against the current intake config.
func (in *Intake) Validate(mimeType string, size int64) error {
	cfg := in.holder.Get()
	if size <= 0 {
		return ErrEmptyImage
	}
	if !cfg.Accepts(mimeType) {
		return ErrUnsupportedType
	}
	if cfg.MaxImageBytes > 0 && size > cfg.MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// Prepare validates data and re-encodes decodable images as JPEG no wider than
// the configured width. Formats the process cannot decode (HEIC) pass through
// unchanged with their declared type.
func (in *Intake) Prepare(data []byte, mimeType string) (nutritiondomain.Image, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if err := in.Validate(mimeType, int64(len(data))); err != nil {
		return nutritiondomain.Image{}, err
	}

	original := nutritiondomain.Image{Data: data, MIMEType: mimeType}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		in.log.Debug("image passed through undecoded", zap.String("mime_type", mimeType), zap.Error(err))
		return original, nil
	}

	cfg := in.holder.Get()
	out, err := Downscale(src, cfg.MaxImageWidth, cfg.JPEGQuality)
	if err != nil {
		in.log.Warn("image re-encode failed", zap.String("format", format), zap.Error(err))
		return original, nil
	}
	in.log.Debug("image prepared",
		zap.String("format", format),
		zap.Int("bytes_in", len(data)),
		zap.Int("bytes_out", len(out)),
	)
	return nutritiondomain.Image{Data: out, MIMEType: "image/jpeg"}, nil
}

// Downscale resizes src to at most maxWidth pixels wide, keeping its aspect
// ratio, and encodes it as JPEG. Transparent pixels are flattened onto white.
func Downscale(src image.Image, maxWidth, quality int) ([]byte, error) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	if maxWidth > 0 && width > maxWidth {
		height = max(1, height*maxWidth/width)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
