package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutIsWriteOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "posts/p1/0_1.png", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/posts/p1/0_1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "posts", "p1", "0_1.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, err = store.Put(context.Background(), "posts/p1/0_1.png", []byte("other"), "image/png")
	assert.Error(t, err)
}

func TestLocalStorage_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "avatars/u1/0_1.png", pngBytes, "image/png")
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "avatars", "u1", "0_1.png"))
	assert.True(t, os.IsNotExist(err))

	// foreign URLs and missing files are not errors
	assert.NoError(t, store.Delete(context.Background(), "https://elsewhere.com/x.png"))
	assert.NoError(t, store.Delete(context.Background(), url))
}

type fakeS3 struct {
	s3iface.S3API
	putErr  error
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	client := &fakeS3{}
	store := NewS3StorageWithClient(client, "bucket", "https://bucket.s3.eu-central-1.amazonaws.com")

	url, err := store.Put(context.Background(), "posts/p1/0_1.png", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.eu-central-1.amazonaws.com/posts/p1/0_1.png", url)
	require.Len(t, client.puts, 1)
	assert.Equal(t, "posts/p1/0_1.png", aws.StringValue(client.puts[0].Key))
	assert.Equal(t, "image/png", aws.StringValue(client.puts[0].ContentType))

	require.NoError(t, store.Delete(context.Background(), url))
	require.Len(t, client.deletes, 1)
	assert.Equal(t, "posts/p1/0_1.png", aws.StringValue(client.deletes[0].Key))
}

func TestS3Storage_AccessDeniedIsUnauthorized(t *testing.T) {
	client := &fakeS3{putErr: awserr.New("AccessDenied", "Access Denied", nil)}
	in := newTestIngestor(t, NewS3StorageWithClient(client, "bucket", "https://cdn"))

	_, err := in.Resolve(context.Background(), "p1", 0, inline(pngBytes), nil)

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, KindUnauthorized, uerr.Kind)
	assert.Equal(t, "Yükleme yetkiniz yok. Lütfen tekrar giriş yapın.", uerr.Message())
}
