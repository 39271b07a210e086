package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	CodedErrorResponse(rec, "upload/unauthorized", "Yetkisiz", http.StatusForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Yetkisiz", body.Error)
	assert.Equal(t, "upload/unauthorized", body.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?limit=30&bad=abc&big=1000", nil)
	assert.Equal(t, 30, QueryInt(req, "limit", 20, 100))
	assert.Equal(t, 20, QueryInt(req, "bad", 20, 100))
	assert.Equal(t, 20, QueryInt(req, "big", 20, 100))
	assert.Equal(t, 20, QueryInt(req, "missing", 20, 100))
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Name  string `validate:"max=3"`
	}
	err := ValidateStruct(req{Email: "nope", Name: "abcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email must be a valid email")
	assert.Contains(t, err.Error(), "Name must be at most 3 characters")

	assert.NoError(t, ValidateStruct(req{Email: "a@b.co", Name: "ab"}))
}

func TestDetailedErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	DetailedErrorResponse(rec, "invalid_argument", "Geçersiz", map[string]int{"failed_index": 1}, http.StatusUnprocessableEntity)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Geçersiz","code":"invalid_argument","data":{"failed_index":1}}`, rec.Body.String())
}
