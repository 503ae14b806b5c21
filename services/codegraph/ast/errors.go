// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for project loading and parsing.
//
// These errors can be checked using errors.Is() to determine the
// category of failure without inspecting error messages.
var (
	// ErrTSConfigNotFound indicates the project root has no tsconfig.json.
	ErrTSConfigNotFound = errors.New("tsconfig.json not found")

	// ErrInvalidTSConfig indicates tsconfig.json exists but cannot be decoded.
	ErrInvalidTSConfig = errors.New("invalid tsconfig.json")

	// ErrInvalidContent indicates that the provided content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates a source file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ParseError describes a failure to read or parse one source file.
//
// Example:
//
//	project, err := ast.LoadProject(ctx, root)
//	var parseErr *ast.ParseError
//	if errors.As(err, &parseErr) {
//	    fmt.Printf("cannot parse %s: %v\n", parseErr.FilePath, parseErr.Cause)
//	}
type ParseError struct {
	// FilePath is the project-relative path of the failing file.
	FilePath string

	// Message describes the failure in human-readable form.
	Message string

	// Cause is the underlying error. May be nil.
	Cause error
}

// Error returns "file: message" followed by the cause when present.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// wrapParseError wraps err with file context unless it already is a ParseError.
func wrapParseError(err error, filePath, message string) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	return &ParseError{FilePath: filePath, Message: message, Cause: err}
}
