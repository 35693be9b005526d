package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"go.uber.org/zap"
)

// DefaultMaxFileSize caps a single upload.
const DefaultMaxFileSize int64 = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoFiles         = errors.New("no files uploaded")
)

// Kind is the family of media an upload must belong to.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Upload is one incoming file.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// FromFileHeaders adapts multipart form files.
func FromFileHeaders(headers []*multipart.FileHeader) []Upload {
	uploads := make([]Upload, len(headers))
	for i, fh := range headers {
		uploads[i] = Upload{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}
	}
	return uploads
}

// Manager turns uploads into attachments and owns their release.
type Manager struct {
	store       Store
	maxFileSize int64
	logger      *zap.Logger
}

func NewManager(store Store, maxFileSize int64, logger *zap.Logger) *Manager {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Manager{store: store, maxFileSize: maxFileSize, logger: logger}
}

// Acquire stores a batch of uploads as a unit. When any file is rejected every
// file of the batch already stored is released before returning the error.
func (m *Manager) Acquire(ctx context.Context, owner string, kind Kind, uploads []Upload) ([]models.Attachment, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	acquired := make([]models.Attachment, 0, len(uploads))
	for _, u := range uploads {
		att, err := m.acquireOne(ctx, owner, kind, u)
		if err != nil {
			m.Release(ctx, acquired)
			return nil, fmt.Errorf("%s: %w", u.Filename, err)
		}
		acquired = append(acquired, att)
	}
	return acquired, nil
}

func (m *Manager) acquireOne(ctx context.Context, owner string, kind Kind, u Upload) (models.Attachment, error) {
	rc, err := u.Open()
	if err != nil {
		return models.Attachment{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, m.maxFileSize+1))
	if err != nil {
		return models.Attachment{}, err
	}
	if int64(len(data)) > m.maxFileSize {
		return models.Attachment{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, m.maxFileSize)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), string(kind)+"/") {
		return models.Attachment{}, fmt.Errorf("%w: %s is not %s", ErrUnsupportedType, mtype.String(), kind)
	}

	key := fmt.Sprintf("stories/%s/%s%s", owner, uuid.NewString(), mtype.Extension())
	if err := m.store.Put(ctx, key, mtype.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		return models.Attachment{}, err
	}

	preview, err := m.store.PreviewURL(ctx, key)
	if err != nil {
		m.deleteQuietly(ctx, key)
		return models.Attachment{}, err
	}

	return models.Attachment{
		Key:         key,
		Filename:    u.Filename,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
		PreviewURL:  preview,
	}, nil
}

// Release deletes the objects behind atts. Failures are logged, not returned.
func (m *Manager) Release(ctx context.Context, atts []models.Attachment) {
	for _, a := range atts {
		m.deleteQuietly(ctx, a.Key)
	}
}

func (m *Manager) deleteQuietly(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn("Failed to release media", zap.String("key", key), zap.Error(err))
	}
}

// Open streams the stored object behind an attachment.
func (m *Manager) Open(ctx context.Context, att models.Attachment) (io.ReadCloser, error) {
	return m.store.Open(ctx, att.Key)
}
