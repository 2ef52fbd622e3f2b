package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	t.Run("decodes a known shape", func(t *testing.T) {
		var dst payload
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"x"}`))
		require.NoError(t, readJSON(httptest.NewRecorder(), r, &dst))
		assert.Equal(t, "x", dst.Title)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var dst payload
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"x","bogus":1}`))
		require.Error(t, readJSON(httptest.NewRecorder(), r, &dst))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var dst payload
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{broken`))
		require.Error(t, readJSON(httptest.NewRecorder(), r, &dst))
	})
}
