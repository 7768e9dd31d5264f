// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

// GetOpenAPISpec returns the embedded OpenAPI document.
func GetOpenAPISpec() ([]byte, error) {
	if len(openAPISpec) == 0 {
		return nil, http.ErrMissingFile
	}
	return openAPISpec, nil
}

func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec, err := GetOpenAPISpec()
	if err != nil {
		http.Error(w, "OpenAPI spec not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(spec)
}
