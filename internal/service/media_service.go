package service

import (
	"context"
	"fmt"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

// maxMediaSize caps a single attachment at 25 MB
const maxMediaSize = 25 << 20

// Uploader is the blob-store surface the media service writes through.
// *storage.S3Client implements it.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MediaUpload is a raw attachment as received from a client
type MediaUpload struct {
	Data []byte
}

// MediaResult is a stored attachment
type MediaResult struct {
	URL       string
	MediaType string
}

// MediaService validates attachments and stores them under deterministic
// keys so re-uploads for the same owning record overwrite in place
type MediaService struct {
	uploader Uploader
}

// NewMediaService creates a new MediaService
func NewMediaService(uploader Uploader) *MediaService {
	return &MediaService{uploader: uploader}
}

// Store sniffs the attachment's content type, rejects anything that is not
// an image or a video, and uploads it as <kind>_<ownerID>_<refID>
func (s *MediaService) Store(ctx context.Context, media *MediaUpload, kind, ownerID, refID string) (*MediaResult, error) {
	if media == nil || len(media.Data) == 0 {
		return nil, fmt.Errorf("%w: empty media payload", common.ErrValidation)
	}
	if len(media.Data) > maxMediaSize {
		return nil, fmt.Errorf("%w: media exceeds %d bytes", common.ErrValidation, maxMediaSize)
	}

	detected := mimetype.Detect(media.Data)
	mediaType, ok := classify(detected)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported media type %s", common.ErrValidation, detected.String())
	}

	key := fmt.Sprintf("%s_%s_%s", kind, ownerID, refID)
	url, err := s.uploader.Upload(ctx, key, media.Data, detected.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpload, err)
	}
	return &MediaResult{URL: url, MediaType: mediaType}, nil
}

func classify(m *mimetype.MIME) (string, bool) {
	switch {
	case mimetype.EqualsAny(m.String(), "image/jpeg", "image/png", "image/gif", "image/webp"):
		return domain.MediaTypeImage, true
	case mimetype.EqualsAny(m.String(), "video/mp4", "video/webm", "video/quicktime"):
		return domain.MediaTypeVideo, true
	}
	return "", false
}
