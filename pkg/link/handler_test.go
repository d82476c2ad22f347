package link

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	f := setup(t)
	handler := NewHandler(f.signer, f.resolver)

	t.Run("should sign and then verify the current subscriber's link", func(t *testing.T) {
		// given
		req := httptest.NewRequest("GET", "/api/me/signature", nil)
		req = req.WithContext(subscriber.WithSubscriber(context.Background(), f.alice))
		rec := httptest.NewRecorder()

		// when
		handler.Signature(rec, req)

		// then
		require.Equal(t, http.StatusOK, rec.Code)
		var dto LinkDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))

		body, _ := json.Marshal(dto)
		rec = httptest.NewRecorder()
		handler.VerifySignature(rec, httptest.NewRequest("POST", "/api/verify/signature", strings.NewReader(string(body))))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"valid":true}`, rec.Body.String())

		rec = httptest.NewRecorder()
		handler.PublicSchedule(rec, httptest.NewRequest("POST", "/api/schedule/public", strings.NewReader(string(body))))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	})

	t.Run("should answer 400 for an invalid link", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.VerifySignature(rec, httptest.NewRequest("POST", "/api/verify/signature", strings.NewReader(`{"url":"https://book.example.org/alice/nope"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid link")
	})

	t.Run("should answer 401 without subscriber", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.Signature(rec, httptest.NewRequest("GET", "/api/me/signature", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
