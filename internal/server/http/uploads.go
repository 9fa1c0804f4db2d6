package internalhttp

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lomoval/calendar-helper/internal/pipeline"
)

const (
	defaultMaxImageSize = 4 * 1024 * 1024
	defaultMaxImages    = 5
	formOverhead        = 1024 * 1024
)

var defaultImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/tiff"}

// ValidationError is an upload problem reported to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type UploadConfig struct {
	MaxImageSize int64
	MaxImages    int
	AllowedTypes []string
}

func (c UploadConfig) withDefaults() UploadConfig {
	if c.MaxImageSize <= 0 {
		c.MaxImageSize = defaultMaxImageSize
	}
	if c.MaxImages <= 0 {
		c.MaxImages = defaultMaxImages
	}
	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = defaultImageTypes
	}
	return c
}

func (c UploadConfig) maxTotal() int64 {
	return c.MaxImageSize * int64(c.MaxImages)
}

func (c UploadConfig) allowed(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, t := range c.AllowedTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

// readUploads parses the multipart form and returns the validated images and the text field.
func (c UploadConfig) readUploads(w http.ResponseWriter, r *http.Request) ([]pipeline.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxTotal()+formOverhead)
	err := r.ParseMultipartForm(c.maxTotal())
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", invalid("Total size of all images exceeds the limit")
		}
		return nil, "", invalid("Unable to read the uploaded form")
	}
	text := strings.TrimSpace(r.FormValue("text"))
	if r.MultipartForm == nil {
		return nil, text, nil
	}

	files := r.MultipartForm.File["image"]
	if len(files) > c.MaxImages {
		return nil, "", invalid("Please select up to %d images only", c.MaxImages)
	}
	var total int64
	images := make([]pipeline.Image, 0, len(files))
	for _, fh := range files {
		total += fh.Size
		if fh.Size > c.MaxImageSize {
			return nil, "", invalid("Please limit each image to %dmb. %s is too large.", c.MaxImageSize/(1024*1024), fh.Filename)
		}
		contentType := fh.Header.Get("Content-Type")
		if !c.allowed(contentType) {
			return nil, "", invalid("Invalid file type: %s. Please use png, jpg, jpeg, or tiff images only.", fh.Filename)
		}
		data, err := readFile(fh)
		if err != nil {
			return nil, "", err
		}
		images = append(images, pipeline.Image{Data: data, MIMEType: contentType})
	}
	if total > c.maxTotal() {
		return nil, "", invalid("Total size of all images exceeds the limit")
	}
	return images, text, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}
	return data, nil
}
