package aggregate

// DefaultPageSize applies when the caller does not specify one.
const DefaultPageSize = 100

// Page slices an already-sorted list for 1-indexed pagination. The page
// count is n/pageSize + 1, so a list whose length is an exact multiple of
// the page size reports one final empty page; callers rely on this count to
// know when to stop iterating.
func Page[T any](items []T, page, pageSize int) ([]T, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	totalPages := len(items)/pageSize + 1

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, totalPages
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}
