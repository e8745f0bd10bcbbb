package query

// DefaultPerPage is used when Paginate receives a non-positive page size.
const DefaultPerPage = 15

// Paginate applies LIMIT/OFFSET for 1-based page numbers. Non-positive pages
// clamp to 1, non-positive page sizes to DefaultPerPage.
func Paginate(b Builder, page, perPage int) Builder {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return b.Limit(uint64(perPage)).Offset(uint64(perPage) * uint64(page-1))
}

// SimplePaginate applies LIMIT perPage+1/OFFSET so the caller can detect the
// presence of a next page by receiving one extra row, without a COUNT query.
func SimplePaginate(b Builder, page, perPage int) Builder {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return b.Limit(uint64(perPage) + 1).Offset(uint64(perPage) * uint64(page-1))
}
