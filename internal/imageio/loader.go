// Image loading and saving through the OpenCV codecs
package imageio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	// ErrNotFound reports a missing input file.
	ErrNotFound = errors.New("image file not found")

	// ErrDecode reports a file the codec could not decode.
	ErrDecode = errors.New("image decode failed")

	// ErrWrite reports a failed save.
	ErrWrite = errors.New("image write failed")
)

var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

// Loader handles image file operations.
type Loader struct {
	logger *logrus.Logger
}

func NewLoader(logger *logrus.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads an image as 3-channel BGR.
func (l *Loader) Load(path string) (gocv.Mat, error) {
	return l.load(path, gocv.IMReadColor)
}

// LoadGrayscale reads an image as a single channel.
func (l *Loader) LoadGrayscale(path string) (gocv.Mat, error) {
	return l.load(path, gocv.IMReadGrayScale)
}

func (l *Loader) load(path string, flag gocv.IMReadFlag) (gocv.Mat, error) {
	if !IsSupportedFormat(path) {
		return gocv.NewMat(), fmt.Errorf("%w: unsupported format %q", ErrDecode, filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	mat := gocv.IMRead(path, flag)
	if mat.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrDecode, path)
	}

	l.logger.WithFields(logrus.Fields{
		"path":     path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Debug("Image loaded")

	return mat, nil
}

// Save writes an image, creating the destination directory if needed.
func (l *Loader) Save(img gocv.Mat, path string) error {
	if img.Empty() {
		return fmt.Errorf("%w: empty image", ErrWrite)
	}
	if !IsSupportedFormat(path) {
		return fmt.Errorf("%w: unsupported format %q", ErrWrite, filepath.Ext(path))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
		}
	}

	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("%w: %s", ErrWrite, path)
	}

	l.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  img.Cols(),
		"height": img.Rows(),
	}).Debug("Image saved")

	return nil
}

// IsSupportedFormat reports whether the file extension is one the codecs
// handle.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
