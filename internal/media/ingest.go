// Package media turns the media references attached to a post, avatar or
// blog cover into persisted object URLs.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Media types stored on an Item
const (
	TypeImage = "image"
	TypeVideo = "video"
)

// Item is a persisted media object
type Item struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Source is how a reference is resolved
type Source int

const (
	SourceInvalid Source = iota
	SourceRemote
	SourceTransient
	SourceInline
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceTransient:
		return "transient"
	case SourceInline:
		return "inline"
	default:
		return "invalid"
	}
}

const (
	transientPrefix = "blob:"
	inlinePrefix    = "data:"
)

// Classify reports how ref will be resolved. Checks run in order: remote
// URL, transient file reference, inline payload.
func Classify(ref string) Source {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceRemote
	case strings.HasPrefix(lower, transientPrefix) && len(ref) > len(transientPrefix):
		return SourceTransient
	case strings.HasPrefix(lower, inlinePrefix):
		return SourceInline
	default:
		return SourceInvalid
	}
}

// Files gives access to the file parts sent alongside a request. A
// transient reference "blob:<name>" names one of them.
type Files interface {
	Read(name string) ([]byte, error)
}

// FormFiles reads parts of a parsed multipart form
type FormFiles struct {
	form    *multipart.Form
	maxSize int64
}

func NewFormFiles(form *multipart.Form, maxSize int64) *FormFiles {
	return &FormFiles{form: form, maxSize: maxSize}
}

func (f *FormFiles) Read(name string) ([]byte, error) {
	if f.form == nil || len(f.form.File[name]) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	file, err := f.form.File[name][0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", name, err)
	}
	return data, nil
}

// MapFiles is an in-memory Files
type MapFiles map[string][]byte

func (m MapFiles) Read(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	return data, nil
}

// Ingestor resolves references and stores their bytes under
// <namespace>/<entityID>/<index>_<unix-millis><ext>.
type Ingestor struct {
	storage   Storage
	namespace string
	maxSize   int64
	logger    *zap.Logger
	now       func() time.Time
}

func NewIngestor(storage Storage, namespace string, maxSize int64, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		storage:   storage,
		namespace: namespace,
		maxSize:   maxSize,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNamespace returns an ingestor sharing the storage but writing under
// another top level folder.
func (i *Ingestor) WithNamespace(namespace string) *Ingestor {
	cp := *i
	cp.namespace = namespace
	return &cp
}

// Storage exposes the backend for cleanup of replaced objects
func (i *Ingestor) Storage() Storage { return i.storage }

// IngestAll resolves refs one after another. The first failure stops the
// batch; items stored before it stay persisted and are reported in the
// returned *PartialUploadError.
func (i *Ingestor) IngestAll(ctx context.Context, entityID string, refs []string, files Files) ([]Item, error) {
	items := make([]Item, 0, len(refs))
	for idx, ref := range refs {
		item, err := i.Resolve(ctx, entityID, idx, ref, files)
		if err != nil {
			i.logger.Warn("media batch aborted",
				zap.String("entity_id", entityID),
				zap.Int("index", idx),
				zap.Int("persisted", len(items)),
				zap.Error(err),
			)
			return items, &PartialUploadError{
				Uploaded: items,
				Index:    idx,
				Total:    len(refs),
				Err:      classify(ref, err),
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Resolve turns one reference into a persisted Item
func (i *Ingestor) Resolve(ctx context.Context, entityID string, index int, ref string, files Files) (Item, error) {
	src := Classify(ref)

	item, err := i.resolve(ctx, src, entityID, index, ref, files)
	result := "ok"
	if err != nil {
		result = "error"
	}
	uploadsTotal.WithLabelValues(src.String(), result).Inc()
	return item, err
}

func (i *Ingestor) resolve(ctx context.Context, src Source, entityID string, index int, ref string, files Files) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, &UploadError{Kind: KindCanceled, Ref: ref, Err: err}
	}

	var data []byte
	switch src {
	case SourceRemote:
		return Item{URL: ref, Type: typeFromPath(ref)}, nil
	case SourceTransient:
		if files == nil {
			return Item{}, invalid(ref, ErrMissingPart)
		}
		b, err := files.Read(ref[len(transientPrefix):])
		if err != nil {
			return Item{}, invalid(ref, err)
		}
		data = b
	case SourceInline:
		b, err := decodeInline(ref)
		if err != nil {
			return Item{}, invalid(ref, err)
		}
		data = b
	default:
		return Item{}, invalid(ref, ErrUnsupportedRef)
	}

	if len(data) == 0 {
		return Item{}, invalid(ref, ErrEmptyPayload)
	}
	if i.maxSize > 0 && int64(len(data)) > i.maxSize {
		return Item{}, invalid(ref, ErrTooLarge)
	}

	mtype := mimetype.Detect(data)
	kind := typeFromMIME(mtype.String())
	if kind == "" {
		return Item{}, invalid(ref, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String()))
	}

	key := fmt.Sprintf("%s/%s/%d_%d%s", i.namespace, entityID, index, i.now().UnixMilli(), mtype.Extension())
	url, err := i.storage.Put(ctx, key, data, mtype.String())
	if err != nil {
		return Item{}, classify(ref, err)
	}
	uploadBytes.Observe(float64(len(data)))

	i.logger.Debug("media stored",
		zap.String("key", key),
		zap.String("backend", i.storage.Backend()),
		zap.Int("bytes", len(data)),
	)
	return Item{URL: url, Type: kind}, nil
}

// decodeInline parses data:<mime>;base64,<payload>
func decodeInline(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref[len(inlinePrefix):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrUnsupportedRef)
	}
	if !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, fmt.Errorf("%w: inline payload must be base64", ErrUnsupportedRef)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline payload: %w", err)
	}
	return data, nil
}

func typeFromMIME(m string) string {
	switch {
	case strings.HasPrefix(m, "image/"):
		return TypeImage
	case strings.HasPrefix(m, "video/"):
		return TypeVideo
	}
	return ""
}

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true, ".m4v": true, ".3gp": true}

func typeFromPath(u string) string {
	if q := strings.IndexAny(u, "?#"); q >= 0 {
		u = u[:q]
	}
	if videoExts[strings.ToLower(path.Ext(u))] {
		return TypeVideo
	}
	return TypeImage
}
