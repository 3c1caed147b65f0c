// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codec compresses prompt snapshots for storage.
//
// Bot messages carry the exact prompt that produced them so a user can
// inspect what the model saw. Prompts are large and repetitive, so they are
// stored gzip-compressed and base64-encoded. The contract is a deterministic
// string⇄string mapping with "" round-tripping to "".
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// Compress gzips the input and encodes it as base64.
func Compress(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		return "", fmt.Errorf("codec compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("codec compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress.
func Decompress(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("codec decompress: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("codec decompress: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("codec decompress: %w", err)
	}
	return string(out), nil
}
