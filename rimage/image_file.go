package rimage

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	_ "golang.org/x/image/bmp"  // register bmp
	_ "golang.org/x/image/tiff" // register tiff
	_ "golang.org/x/image/webp" // register webp
)

// Image file extensions that ReadImageFromFile can decode.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".ppm":  true,
	".qoi":  true,
}

// IsImageFile reports whether path has an extension of a decodable image format.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ReadImageFromFile decodes the image at path. JPEGs are rotated according to their EXIF
// orientation.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", path)
	}
	return img, nil
}

// DecodeImage decodes an image of any registered format.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "cannot decode image")
	}
	return img, format, nil
}

// WriteImageToFile encodes img in the format implied by the extension of path.
func WriteImageToFile(path string, img image.Image) error {
	if strings.ToLower(filepath.Ext(path)) == ".qoi" {
		var buf bytes.Buffer
		if err := qoi.Encode(&buf, img); err != nil {
			return errors.Wrapf(err, "cannot encode %q", path)
		}
		//nolint:gosec
		return os.WriteFile(path, buf.Bytes(), 0o644)
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}
