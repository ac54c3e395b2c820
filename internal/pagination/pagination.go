// Package pagination implements the page/pages/page-size-100 convention
// spec.md §6 applies to every listing endpoint. Plain arithmetic — no
// library in the pack owns this concern (see DESIGN.md).
package pagination

import "kasupel/internal/apierr"

// Size is the fixed page size spec.md §6 mandates.
const Size = 100

// Page is a 0-indexed listing page plus the total page count.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Pages computes the page count for total rows at the fixed page Size.
func Pages(total int64) int {
	return int((total + Size - 1) / Size)
}

// Validate checks a requested page index against the listing's total size,
// returning apierr.PageOutOfRange once page is beyond the last page (page 0
// of an empty listing is always valid).
func Validate(page int, total int64) error {
	if page < 0 {
		return apierr.Of(apierr.PageOutOfRange)
	}
	if total == 0 {
		if page == 0 {
			return nil
		}
		return apierr.Of(apierr.PageOutOfRange)
	}
	if int64(page) >= (total+Size-1)/Size {
		return apierr.Of(apierr.PageOutOfRange)
	}
	return nil
}
