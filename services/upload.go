package services

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"inkpost-api/models"
)

// sniffLen covers every signature mimetype checks for the image types accepted below.
const sniffLen = 3072

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Extension   string
	Content     io.Reader
}

// ValidateImage checks that up is an accepted raster image no larger than maxBytes. It sniffs
// the content rather than trusting the client-declared type, and returns an Upload whose
// Content still yields the full file.
func ValidateImage(field string, up *Upload, maxBytes int64) (*Upload, error) {
	if up == nil || up.Content == nil {
		return nil, models.NewFieldError(field, fmt.Sprintf("The %s field must be a file.", field))
	}
	if maxBytes > 0 && up.Size > maxBytes {
		return nil, models.NewFieldError(field,
			fmt.Sprintf("The %s field must not be greater than %d kilobytes.", field, maxBytes/1024))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return nil, models.NewFieldError(field,
			fmt.Sprintf("The %s field must be a file of type: jpeg, png, gif, webp.", field))
	}

	return &Upload{
		Filename:    up.Filename,
		Size:        up.Size,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
		Content:     io.MultiReader(bytes.NewReader(head), up.Content),
	}, nil
}
