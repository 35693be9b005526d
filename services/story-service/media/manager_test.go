package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func upload(name string, data []byte) media.Upload {
	return media.Upload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newManager(t *testing.T, maxSize int64) (*media.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := media.NewLocalStore(dir, "http://localhost:8080/media/")
	require.NoError(t, err)
	return media.NewManager(store, maxSize, zap.NewNop()), dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func TestAcquire_StoresImages(t *testing.T) {
	m, dir := newManager(t, 0)

	atts, err := m.Acquire(context.Background(), "s1", media.KindImage, []media.Upload{
		upload("a.png", pngHeader),
		upload("b.png", pngHeader),
	})
	require.NoError(t, err)
	require.Len(t, atts, 2)

	assert.Equal(t, "a.png", atts[0].Filename)
	assert.Equal(t, "image/png", atts[0].ContentType)
	assert.True(t, strings.HasPrefix(atts[0].Key, "stories/s1/"))
	assert.True(t, strings.HasSuffix(atts[0].Key, ".png"))
	assert.Equal(t, "http://localhost:8080/media/"+atts[0].Key, atts[0].PreviewURL)
	assert.NotEqual(t, atts[0].Key, atts[1].Key)
	assert.Equal(t, 2, countFiles(t, dir))

	rc, err := m.Open(context.Background(), atts[0])
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, pngHeader, data)
}

func TestAcquire_BatchReleasedOnRejectedFile(t *testing.T) {
	m, dir := newManager(t, 0)

	_, err := m.Acquire(context.Background(), "s1", media.KindImage, []media.Upload{
		upload("a.png", pngHeader),
		upload("notes.txt", []byte("just some text")),
	})

	assert.ErrorIs(t, err, media.ErrUnsupportedType)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcquire_OpenFailureReleasesBatch(t *testing.T) {
	m, dir := newManager(t, 0)

	broken := media.Upload{Filename: "c.png", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("disk gone")
	}}
	_, err := m.Acquire(context.Background(), "s1", media.KindImage, []media.Upload{upload("a.png", pngHeader), broken})

	assert.Error(t, err)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestAcquire_SizeCap(t *testing.T) {
	m, _ := newManager(t, int64(len(pngHeader)-1))

	_, err := m.Acquire(context.Background(), "s1", media.KindImage, []media.Upload{upload("a.png", pngHeader)})
	assert.ErrorIs(t, err, media.ErrFileTooLarge)
}

func TestAcquire_Audio(t *testing.T) {
	m, _ := newManager(t, 0)
	mp3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

	atts, err := m.Acquire(context.Background(), "s1", media.KindAudio, []media.Upload{upload("song.mp3", mp3)})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", atts[0].ContentType)

	_, err = m.Acquire(context.Background(), "s1", media.KindAudio, []media.Upload{upload("a.png", pngHeader)})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
}

func TestAcquire_NoFiles(t *testing.T) {
	m, _ := newManager(t, 0)
	_, err := m.Acquire(context.Background(), "s1", media.KindImage, nil)
	assert.ErrorIs(t, err, media.ErrNoFiles)
}

func TestRelease_DeletesAndToleratesMissing(t *testing.T) {
	m, dir := newManager(t, 0)

	atts, err := m.Acquire(context.Background(), "s1", media.KindImage, []media.Upload{upload("a.png", pngHeader)})
	require.NoError(t, err)

	m.Release(context.Background(), atts)
	assert.Equal(t, 0, countFiles(t, dir))

	m.Release(context.Background(), append(atts, models.Attachment{Key: "stories/s1/missing.png"}))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := media.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, media.ErrInvalidKey)

	err = store.Put(context.Background(), "", "image/png", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, media.ErrInvalidKey)
}
