package service

import (
	"context"
	"testing"

	"github.com/chatly/chatly-backend/internal/common"
	"github.com/chatly/chatly-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaStoreSniffsImageType(t *testing.T) {
	uploader := newFakeUploader()
	svc := NewMediaService(uploader)

	result, err := svc.Store(context.Background(), &MediaUpload{Data: pngBytes}, "message", "alice", "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeImage, result.MediaType)
	assert.Equal(t, "https://cdn.test/message_alice_m1", result.URL)
}

func TestMediaStoreRejectsUnsupportedType(t *testing.T) {
	svc := NewMediaService(newFakeUploader())

	_, err := svc.Store(context.Background(), &MediaUpload{Data: []byte("%PDF-1.4 not media")}, "message", "alice", "m1")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMediaStoreRejectsEmptyAndOversized(t *testing.T) {
	svc := NewMediaService(newFakeUploader())

	_, err := svc.Store(context.Background(), &MediaUpload{}, "message", "alice", "m1")
	assert.ErrorIs(t, err, common.ErrValidation)

	huge := make([]byte, maxMediaSize+1)
	copy(huge, pngBytes)
	_, err = svc.Store(context.Background(), &MediaUpload{Data: huge}, "message", "alice", "m1")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMediaStoreWrapsUploadFailure(t *testing.T) {
	uploader := newFakeUploader()
	uploader.fail = true
	svc := NewMediaService(uploader)

	_, err := svc.Store(context.Background(), &MediaUpload{Data: pngBytes}, "status", "alice", "s1")
	assert.ErrorIs(t, err, common.ErrUpload)
}
