package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/taskboard/authz"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{authz.ErrNotFound, http.StatusNotFound},
		{authz.ErrNotAMember, http.StatusNotFound},
		{authz.ErrForbidden, http.StatusForbidden},
		{authz.ErrInvalidInput, http.StatusBadRequest},
		{authz.ErrDomainTaken, http.StatusBadRequest},
		{authz.ErrLastProjectMember, http.StatusBadRequest},
		{authz.ErrAlreadyMember, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", authz.ErrForbidden), http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	require.Len(t, c.Errors, 1)
}

func TestRespondError_ExposesKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, authz.ErrOwnerRemoval)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), authz.ErrOwnerRemoval.Error())
	assert.Empty(t, c.Errors)
}
