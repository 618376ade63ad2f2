package ocr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/techtime/constants"
)

// preparedImage is the payload handed to a provider.
type preparedImage struct {
	Path       string // file the bytes came from (after HEIC conversion)
	Data       []byte
	Width      int
	Height     int
	Downscaled bool
	Warnings   []string
}

type imagePrep struct {
	runner        Runner
	logger        *slog.Logger
	heicConverter string
	cacheDir      string
	maxDimension  int
	maxBytes      int64
}

// prepare validates the file, converts HEIC and downscales oversized images to JPEG.
func (p imagePrep) prepare(ctx context.Context, path string) (preparedImage, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if constants.MapExtToFormat(ext) != constants.IMAGE {
		return preparedImage{}, newError(constants.OCRBadImage, fmt.Sprintf("unsupported image type %q", ext), nil)
	}
	st, err := os.Stat(path)
	if err != nil {
		return preparedImage{}, newError(constants.OCRBadImage, "cannot open image", err)
	}
	if st.Size() == 0 {
		return preparedImage{}, newError(constants.OCRBadImage, "image file is empty", nil)
	}
	if p.maxBytes > 0 && st.Size() > p.maxBytes {
		return preparedImage{}, newError(constants.OCRBadImage, fmt.Sprintf("image is larger than %d MB", p.maxBytes>>20), nil)
	}

	out := preparedImage{Path: path}
	if constants.IsHEICExt(ext) {
		converted, warns, err := p.convertHEIC(ctx, path)
		out.Warnings = append(out.Warnings, warns...)
		if err != nil {
			return out, newError(constants.OCRBadImage, "heic conversion failed", err)
		}
		out.Path = converted
	}

	data, err := os.ReadFile(out.Path)
	if err != nil {
		return out, newError(constants.OCRBadImage, "cannot read image", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return out, newError(constants.OCRBadImage, "unrecognised image data", err)
	}
	out.Data, out.Width, out.Height = data, cfg.Width, cfg.Height

	if p.maxDimension > 0 && max(cfg.Width, cfg.Height) > p.maxDimension {
		scaled, w, h, err := downscale(data, p.maxDimension)
		if err != nil {
			return out, newError(constants.OCRBadImage, "cannot resize image", err)
		}
		p.logger.Debug("ocr.image.downscaled", "path", path, "from_w", cfg.Width, "from_h", cfg.Height, "to_w", w, "to_h", h)
		out.Data, out.Width, out.Height, out.Downscaled = scaled, w, h, true
	}
	return out, nil
}

// downscale fits the image into a maxDim square and re-encodes it as JPEG.
func downscale(data []byte, maxDim int) ([]byte, int, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), w, h, nil
}

// convertHEIC converts a HEIC/HEIF file to PNG with the configured converter
// ("heif-convert", "magick" or "sips"). When a cache dir is set the PNG is kept
// at {cacheDir}/{sha256}.png and reused.
func (p imagePrep) convertHEIC(ctx context.Context, in string) (string, []string, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(raw)
	dir := p.cacheDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	out := filepath.Join(dir, hex.EncodeToString(sum[:])+".png")
	if st, err := os.Stat(out); err == nil && !st.IsDir() {
		p.logger.Debug("ocr.heic.cache_hit", "cache", out)
		return out, nil, nil
	}

	var args []string
	switch p.heicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := p.runner.Run(ctx, p.heicConverter, args...); err != nil {
		return "", []string{string(errb)}, fmt.Errorf("%s failed: %w", p.heicConverter, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return out, nil, nil
}
