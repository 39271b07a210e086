package database

import "errors"

// ErrReadOnly is returned by sample repositories used when no database is
// configured.
var ErrReadOnly = errors.New("read-only sample mode")

// ReadOnlyRepository is implemented by repositories that reject every write.
// Services check it before uploading anything a write would reference.
type ReadOnlyRepository interface {
	ReadOnly() bool
}

// IsReadOnly reports whether repo rejects writes
func IsReadOnly(repo interface{}) bool {
	ro, ok := repo.(ReadOnlyRepository)
	return ok && ro.ReadOnly()
}

// ReadOnlyMessage is shown when a write hits a sample repository
const ReadOnlyMessage = "Demo modunda değişiklik yapılamaz."
