package handler

import (
	"fmt"
	"strings"
)

// formatETag derives the strong validator for a resource from its length and
// modification time. Any content change visible to the store (size or mtime)
// produces a different validator.
func formatETag(info ResourceInfo) string {
	return fmt.Sprintf("\"%x-%x\"", info.Size, info.ModTime.UnixNano())
}

// matchesETag evaluates an If-None-Match header against the current
// validator. The header may carry a comma-separated list of entity tags or
// the wildcard "*". Weak indicators are ignored for the comparison, a cached
// copy validated by a weak tag is still current for a GET.
func matchesETag(header string, etag string) bool {
	if header == "" {
		return false
	}

	if strings.TrimSpace(header) == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}

	return false
}
