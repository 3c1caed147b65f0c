// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk. Between
// chunks it checks the context and the interrupt flag; a tripped flag
// delivers a synthetic terminal chunk (Done and Interrupted set) and
// returns nil. Interruption is a normal completion, never an error.
func (s *StreamReader) Process(ctx context.Context, interrupt *Interrupt, callback StreamCallback) error {
	for {
		if interrupt != nil && interrupt.Tripped() {
			callback(StreamChunk{Done: true, Interrupted: true, DoneReason: "interrupted"})
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil, nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(trimmed), &chunk); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if chunk.Response != "" {
		s.accumulator.WriteString(chunk.Response)
		s.chunkCount++
	}

	return &chunk, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// ChunkCount returns the number of non-empty chunks received.
func (s *StreamReader) ChunkCount() int {
	return s.chunkCount
}
