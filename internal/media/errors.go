package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
)

// ErrorKind classifies why an upload failed
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindCanceled        ErrorKind = "canceled"
	KindUnknown         ErrorKind = "unknown"
)

var (
	ErrUnsupportedRef  = errors.New("unsupported media reference")
	ErrMissingPart     = errors.New("referenced file part not found")
	ErrTooLarge        = errors.New("media exceeds maximum upload size")
	ErrUnsupportedType = errors.New("media is neither an image nor a video")
	ErrEmptyPayload    = errors.New("media payload is empty")
)

// HTTPStatus maps the kind to the response status handlers use
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidArgument:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusForbidden
	case KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

var messages = map[ErrorKind]string{
	KindInvalidArgument: "Geçersiz dosya. Lütfen farklı bir fotoğraf veya video deneyin.",
	KindUnauthorized:    "Yükleme yetkiniz yok. Lütfen tekrar giriş yapın.",
	KindCanceled:        "Yükleme iptal edildi.",
	KindUnknown:         "Yükleme sırasında bir hata oluştu. Lütfen tekrar deneyin.",
}

// UploadError is returned for any failure while resolving or storing a
// single media reference.
type UploadError struct {
	Kind ErrorKind
	Ref  string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Message returns the localized text shown to the user
func (e *UploadError) Message() string {
	return MessageFor(e.Kind)
}

// MessageFor returns the localized text for an error kind
func MessageFor(kind ErrorKind) string {
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return messages[KindUnknown]
}

// PartialUploadError reports a batch that stopped part way. Items in
// Uploaded are already persisted and are not rolled back.
type PartialUploadError struct {
	Uploaded []Item
	Index    int
	Total    int
	Err      *UploadError
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("uploaded %d of %d media items, item %d failed: %v",
		len(e.Uploaded), e.Total, e.Index, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

// Message returns the localized text of the failing item
func (e *PartialUploadError) Message() string {
	return e.Err.Message()
}

// PartialUploadDetails is the client facing view of a partial failure
type PartialUploadDetails struct {
	Uploaded    []Item `json:"uploaded"`
	FailedIndex int    `json:"failed_index"`
	Total       int    `json:"total"`
}

func (e *PartialUploadError) Details() PartialUploadDetails {
	uploaded := e.Uploaded
	if uploaded == nil {
		uploaded = []Item{}
	}
	return PartialUploadDetails{Uploaded: uploaded, FailedIndex: e.Index, Total: e.Total}
}

func invalid(ref string, err error) *UploadError {
	return &UploadError{Kind: KindInvalidArgument, Ref: ref, Err: err}
}

// classify turns a storage backend error into an UploadError
func classify(ref string, err error) *UploadError {
	var uerr *UploadError
	if errors.As(err, &uerr) {
		return uerr
	}
	return &UploadError{Kind: kindOf(err), Ref: ref, Err: err}
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, os.ErrPermission) {
		return KindUnauthorized
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case request.CanceledErrorCode:
			return KindCanceled
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return KindUnauthorized
		case "InvalidArgument", "EntityTooLarge", "InvalidRequest":
			return KindInvalidArgument
		}
	}
	return KindUnknown
}
