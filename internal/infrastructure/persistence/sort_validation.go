package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns fallback if the input is invalid or empty.
func ValidateSortOrder(orderDir, fallback string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	if strings.EqualFold(fallback, "DESC") {
		return "DESC"
	}
	return "ASC"
}
