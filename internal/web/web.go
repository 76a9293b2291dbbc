// Package web carries the single-page browser frontend. The page is
// static; it talks to the JSON endpoints under /api.
package web

import _ "embed"

//go:embed index.html
var index []byte

const ContentType = "text/html; charset=utf-8"

// Index returns the frontend document.
func Index() []byte { return index }
