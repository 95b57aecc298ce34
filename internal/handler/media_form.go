package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// maxFormMemory caps the in-memory part of multipart parsing; larger files
// spill to disk
const maxFormMemory = 32 << 20

// isMultipart reports whether the request carries a multipart form
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formMedia reads the named file field into a MediaUpload, or nil when the
// field is absent
func formMedia(c *gin.Context, field string) (*service.MediaUpload, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	data, err := readUpload(file)
	if err != nil {
		return nil, err
	}
	return &service.MediaUpload{Data: data}, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read upload", common.ErrValidation)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read upload", common.ErrValidation)
	}
	return data, nil
}
