// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "errors"

var (
	// ErrNilProject indicates Build was called without a project.
	ErrNilProject = errors.New("project must not be nil")

	// ErrInvalidNodeID indicates a string is not in "path:line:name" form.
	ErrInvalidNodeID = errors.New("invalid node id")

	// ErrReExportCycle indicates an export name whose re-export chain loops.
	// It is never returned from Build; cyclic names resolve to nothing.
	ErrReExportCycle = errors.New("re-export cycle")
)
