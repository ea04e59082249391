package serializer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON(t *testing.T) {
	type payload struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}

	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusCreated, payload{Message: "stored", Code: 201})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got payload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "stored", got.Message)
	assert.Equal(t, 201, got.Code)
}

func TestRespondJSONNil(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null\n", w.Body.String())
}

func TestRespondJSONEncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()

	// Channels cannot be marshaled, forcing the encoding path to fail
	// before any status line is committed.
	RespondJSON(w, http.StatusOK, make(chan int))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotZero(t, w.Body.Len())
}

func TestRespondJSONNestedData(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"findings": []string{"a", "b"},
		"count":    2,
		"summary":  map[string]string{"overallHealth": "healthy"},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, float64(2), got["count"])
	assert.Len(t, got["findings"], 2)
}
