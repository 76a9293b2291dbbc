package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexTalksToAPI(t *testing.T) {
	page := string(Index())

	assert.Contains(t, page, "<!DOCTYPE html>")
	for _, endpoint := range []string{"/api/list", "/api/view", "/api/download", "/api/upload"} {
		assert.Contains(t, page, endpoint)
	}
}
