// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policy

import (
	"fmt"
	"hash/fnv"
)

// Seed derives a deterministic seed for a randomized policy from the
// identity of its condition: episode id, byte budget, and policy id. Two
// runs over the same condition must derive the same seed so P5 (byte-
// identical repeated runs) holds.
func Seed(episodeID string, maxBytes int, policyID string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%d\x00%s", episodeID, maxBytes, policyID)
	return int64(h.Sum64())
}
