package mirror

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstore-scraper/internal/organizer"
)

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

type fakeUploader struct {
	calls []putCall
	err   error
}

func (f *fakeUploader) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(r)
	f.calls = append(f.calls, putCall{bucket: bucket, key: key, contentType: opts.ContentType, body: body})
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestWriter_WritesLocallyAndUploads(t *testing.T) {
	fs := afero.NewMemMapFs()
	up := &fakeUploader{}
	w := NewWriter(organizer.NewFsWriter(fs), up, "products", "store", "Downloads", nil)

	require.NoError(t, w.Write("Downloads/Nike_Hoodie_1500/img_1.jpg", []byte("jpeg")))

	data, err := afero.ReadFile(fs, "Downloads/Nike_Hoodie_1500/img_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.Len(t, up.calls, 1)
	assert.Equal(t, putCall{bucket: "products", key: "store/Nike_Hoodie_1500/img_1.jpg", contentType: "image/jpeg", body: []byte("jpeg")}, up.calls[0])
}

func TestWriter_UploadFailureIsNotFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	up := &fakeUploader{err: errors.New("s3 down")}
	w := NewWriter(organizer.NewFsWriter(fs), up, "products", "", "Downloads", nil)

	require.NoError(t, w.Write("Downloads/A_1/metadata.json", []byte("{}")))

	exists, _ := afero.Exists(fs, "Downloads/A_1/metadata.json")
	assert.True(t, exists)
	assert.Equal(t, "application/json", up.calls[0].contentType)
}

func TestWriter_LocalFailureSkipsUpload(t *testing.T) {
	up := &fakeUploader{}
	w := NewWriter(organizer.NewFsWriter(afero.NewReadOnlyFs(afero.NewMemMapFs())), up, "products", "", "Downloads", nil)

	err := w.Write("Downloads/A_1/img_1.jpg", []byte("x"))

	assert.Error(t, err)
	assert.Empty(t, up.calls)
}

func TestWriter_ObjectKey(t *testing.T) {
	w := NewWriter(nil, nil, "b", "", "Downloads", nil)

	assert.Equal(t, "Unparsed/post_1_info.txt", w.ObjectKey("Downloads/Unparsed/post_1_info.txt"))
	assert.Equal(t, "x.jpg", w.ObjectKey("/tmp/elsewhere/x.jpg"))
}
