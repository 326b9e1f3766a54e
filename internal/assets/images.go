package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	minsvg "github.com/tdewolff/minify/v2/svg"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// ImageminOptions configures image optimization
type ImageminOptions struct {
	// Bail stops the build on the first image that cannot be optimized.
	// When false the image is left as is and reported in Failed.
	Bail bool
	// JPEGQuality is the re-encoding quality, zero leaves JPEG files alone
	JPEGQuality int
	// PNG enables re-encoding PNG files with the best compression level
	PNG bool
	// GIF enables re-encoding GIF files
	GIF bool
	// SVG enables SVG minification
	SVG bool
}

// ImageReport summarizes an optimization run
type ImageReport struct {
	Optimized  []string
	Unchanged  []string
	Failed     []string
	BytesSaved int64
}

// ImageminOptionsFrom reads the imagemin plugin option bag
func ImageminOptionsFrom(options buildconfig.Options) ImageminOptions {
	opts := ImageminOptions{Bail: options.Bool("bail", false)}

	plugins, _ := options["plugins"].([]buildconfig.Plugin)
	for _, plugin := range plugins {
		switch plugin.Name {
		case "mozjpeg", "jpegtran":
			opts.JPEGQuality = plugin.Options.Int("quality", 75)
		case "pngquant", "optipng":
			opts.PNG = true
		case "gifsicle":
			opts.GIF = true
		case "svgo":
			opts.SVG = true
		}
	}
	return opts
}

// OptimizeImages re-encodes the images below dir, keeping a result only when
// it is smaller than the original
func OptimizeImages(ctx context.Context, dir string, opts ImageminOptions) (*ImageReport, error) {
	log := zerolog.Ctx(ctx)
	report := &ImageReport{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		optimize := optimizerFor(filepath.Ext(path), opts)
		if optimize == nil {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)

		original, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		optimized, err := optimize(original)
		if err != nil {
			if opts.Bail {
				return fmt.Errorf("failed to optimize %s: %w", rel, err)
			}
			log.Warn().Err(err).Str("file", rel).Msg("Skipping image that could not be optimized")
			report.Failed = append(report.Failed, rel)
			return nil
		}

		if len(optimized) >= len(original) {
			report.Unchanged = append(report.Unchanged, rel)
			return nil
		}

		if err := os.WriteFile(path, optimized, 0o644); err != nil { //nolint:gosec
			return err
		}

		saved := int64(len(original) - len(optimized))
		report.BytesSaved += saved
		report.Optimized = append(report.Optimized, rel)
		log.Debug().Str("file", rel).Int64("saved", saved).Msg("Optimized image")
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("optimized", len(report.Optimized)).
		Int("failed", len(report.Failed)).
		Int64("bytes_saved", report.BytesSaved).
		Msg("Image optimization finished")

	return report, nil
}

func optimizerFor(ext string, opts ImageminOptions) func([]byte) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		if opts.JPEGQuality > 0 {
			return func(b []byte) ([]byte, error) { return optimizeJPEG(b, opts.JPEGQuality) }
		}
	case ".png":
		if opts.PNG {
			return optimizePNG
		}
	case ".gif":
		if opts.GIF {
			return optimizeGIF
		}
	case ".svg":
		if opts.SVG {
			return optimizeSVG
		}
	}
	return nil
}

func optimizeJPEG(b []byte, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// optimizePNG drops ancillary chunks (metadata) by decoding and re-encoding
func optimizePNG(b []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func optimizeGIF(b []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// optimizeSVG minifies markup; the viewBox attribute is always preserved
func optimizeSVG(b []byte) ([]byte, error) {
	m := minify.New()
	m.Add("image/svg+xml", &minsvg.Minifier{})
	return m.Bytes("image/svg+xml", b)
}
