// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for streaming text generation.
//
// The client posts an assembled prompt to an Ollama-compatible generate
// endpoint and reads the response as line-delimited JSON chunks. Between
// chunks it polls an Interrupt flag; a tripped flag stops the stream
// cooperatively and is reported to the caller as a normal completion, not
// an error.
package backend
