// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import "errors"

// Sentinel errors for knowledge base construction. Both are fatal startup
// conditions: the caller must surface them and stop, never synthesize
// fact data in their place.
var (
	// ErrNotFound indicates the backing Turtle file does not exist.
	ErrNotFound = errors.New("knowledge: backing file not found")

	// ErrParse indicates the backing file exists but is not well-formed
	// Turtle data.
	ErrParse = errors.New("knowledge: backing file is not well-formed")
)
