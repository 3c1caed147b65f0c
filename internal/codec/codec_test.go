// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import (
	"strings"
	"testing"
)

func TestCompress_RoundTrip(t *testing.T) {
	prompt := strings.Repeat("You are a helpful assistant.\n", 100) + "User: hello"

	compressed, err := Compress(prompt)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if compressed == prompt {
		t.Error("compressed output equals input")
	}
	if len(compressed) >= len(prompt) {
		t.Errorf("repetitive prompt did not shrink: %d -> %d", len(prompt), len(compressed))
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if out != prompt {
		t.Error("round trip did not preserve input")
	}
}

func TestCompress_Empty(t *testing.T) {
	c, err := Compress("")
	if err != nil || c != "" {
		t.Errorf("Compress(\"\") = %q, %v; want \"\", nil", c, err)
	}
	d, err := Decompress("")
	if err != nil || d != "" {
		t.Errorf("Decompress(\"\") = %q, %v; want \"\", nil", d, err)
	}
}

func TestDecompress_Garbage(t *testing.T) {
	if _, err := Decompress("not base64 !!!"); err == nil {
		t.Error("invalid base64 accepted")
	}
	if _, err := Decompress("aGVsbG8="); err == nil {
		t.Error("non-gzip payload accepted")
	}
}
