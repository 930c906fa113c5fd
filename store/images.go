package store

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/errors"

	"feedboard/domain"
)

var acceptedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// ImageStore keeps uploaded images on disk under a single directory,
// named <unix-millis>_<original-name>. The returned path doubles as the
// URL under which main.go serves the directory.
type ImageStore struct {
	Dir string
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ImageStore{Dir: dir}, nil
}

// Save rejects anything that is not a png or jpeg upload.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if !acceptedImageTypes[fh.Header.Get("Content-Type")] {
		return "", domain.NewValidationError("Image must be png, jpg or jpeg",
			domain.FieldError{Param: "image", Msg: "unsupported file type"})
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	// filepath.Base strips any directory part a client smuggles into
	// the upload filename.
	name := filepath.Join(s.Dir,
		strconv.FormatInt(time.Now().UnixMilli(), 10)+"_"+filepath.Base(fh.Filename))
	dst, err := os.Create(name)
	if err != nil {
		return "", errors.Annotate(err, "storing image")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(name)
		return "", errors.Annotate(err, "storing image")
	}
	return name, nil
}

func (s *ImageStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	return os.Remove(path)
}
