package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeStorage struct {
	puts   []string
	failAt int
	err    error
}

func (f *fakeStorage) Backend() string { return "fake" }

func (f *fakeStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.failAt > 0 && len(f.puts)+1 == f.failAt {
		return "", f.err
	}
	f.puts = append(f.puts, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, url string) error { return nil }

func newTestIngestor(t *testing.T, s Storage) *Ingestor {
	in := NewIngestor(s, "posts", 1<<20, zaptest.NewLogger(t))
	in.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return in
}

func inline(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ref  string
		want Source
	}{
		{"https://example.com/a.jpg", SourceRemote},
		{"HTTP://example.com/a.jpg", SourceRemote},
		{"blob:file0", SourceTransient},
		{"blob:", SourceInvalid},
		{"data:image/png;base64,AAAA", SourceInline},
		{"ftp://example.com/a.jpg", SourceInvalid},
		{"", SourceInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ref))
		})
	}
}

func TestResolve_RemotePassesThroughWithoutUpload(t *testing.T) {
	store := &fakeStorage{}
	in := newTestIngestor(t, store)

	item, err := in.Resolve(context.Background(), "p1", 0, "https://example.com/clip.mp4?x=1", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/clip.mp4?x=1", item.URL)
	assert.Equal(t, TypeVideo, item.Type)
	assert.Empty(t, store.puts)
}

func TestResolve_TransientUploadsPartBytes(t *testing.T) {
	store := &fakeStorage{}
	in := newTestIngestor(t, store)

	item, err := in.Resolve(context.Background(), "p1", 2, "blob:file0", MapFiles{"file0": pngBytes})
	require.NoError(t, err)

	assert.Equal(t, TypeImage, item.Type)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "posts/p1/2_1700000000000.png", store.puts[0])
	assert.Equal(t, "https://cdn.example.com/posts/p1/2_1700000000000.png", item.URL)
}

func TestResolve_TransientMissingPart(t *testing.T) {
	in := newTestIngestor(t, &fakeStorage{})

	_, err := in.Resolve(context.Background(), "p1", 0, "blob:nope", MapFiles{})

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, KindInvalidArgument, uerr.Kind)
	assert.ErrorIs(t, err, ErrMissingPart)
}

func TestResolve_InlineDecodeFailureIsInvalidArgument(t *testing.T) {
	in := newTestIngestor(t, &fakeStorage{})

	_, err := in.Resolve(context.Background(), "p1", 0, "data:image/png;base64,%%%not-base64", nil)

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, KindInvalidArgument, uerr.Kind)
	assert.Equal(t, MessageFor(KindInvalidArgument), uerr.Message())
}

func TestResolve_RejectsNonMedia(t *testing.T) {
	in := newTestIngestor(t, &fakeStorage{})

	_, err := in.Resolve(context.Background(), "p1", 0, inline([]byte("just some text")), nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestResolve_RejectsOversized(t *testing.T) {
	in := newTestIngestor(t, &fakeStorage{})
	in.maxSize = 8

	_, err := in.Resolve(context.Background(), "p1", 0, inline(pngBytes), nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestResolve_CanceledContext(t *testing.T) {
	in := newTestIngestor(t, &fakeStorage{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Resolve(ctx, "p1", 0, inline(pngBytes), nil)

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, KindCanceled, uerr.Kind)
}

func TestIngestAll_AllSucceed(t *testing.T) {
	store := &fakeStorage{}
	in := newTestIngestor(t, store)

	items, err := in.IngestAll(context.Background(), "p1", []string{
		"https://example.com/a.jpg",
		"blob:f1",
		inline(pngBytes),
	}, MapFiles{"f1": pngBytes})
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "https://example.com/a.jpg", items[0].URL)
	assert.Len(t, store.puts, 2)
	assert.Equal(t, "posts/p1/1_1700000000000.png", store.puts[0])
	assert.Equal(t, "posts/p1/2_1700000000000.png", store.puts[1])
}

func TestIngestAll_StopsAtFirstFailureWithoutRollback(t *testing.T) {
	store := &fakeStorage{failAt: 2, err: errors.New("boom")}
	in := newTestIngestor(t, store)

	items, err := in.IngestAll(context.Background(), "p1", []string{
		inline(pngBytes),
		inline(pngBytes),
		inline(pngBytes),
	}, nil)

	var perr *PartialUploadError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Index)
	assert.Equal(t, 3, perr.Total)
	assert.Len(t, perr.Uploaded, 1)
	assert.Equal(t, KindUnknown, perr.Err.Kind)
	assert.Equal(t, items, perr.Uploaded)
	// the first object stays in storage and the third is never attempted
	assert.Len(t, store.puts, 1)
}

func TestWithNamespace(t *testing.T) {
	store := &fakeStorage{}
	in := newTestIngestor(t, store).WithNamespace("avatars")

	_, err := in.Resolve(context.Background(), "u1", 0, inline(pngBytes), nil)
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1/0_1700000000000.png", store.puts[0])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCanceled, kindOf(fmt.Errorf("put: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindUnknown, kindOf(errors.New("disk on fire")))
}
