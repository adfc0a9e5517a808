package sqlgen

import (
	"fmt"
)

// PagingStrategy renders a complete, ordered, paged list query for one of
// the two legacy SQL dialects. Page and size arrive pre-normalized; the
// WHERE fragment and its parameters are built by the caller. Total is the
// filtered row count from the paired count query; a strategy may return ""
// when the requested page lies entirely beyond the data.
type PagingStrategy interface {
	ListQuery(d Descriptor, whereSQL, sortColumn, direction string, page, pageSize, total int) string
}

// OffsetFetch pages with OFFSET/FETCH, the dialect of the primary tenant
// databases.
type OffsetFetch struct{}

func (OffsetFetch) ListQuery(d Descriptor, whereSQL, sortColumn, direction string, page, pageSize, _ int) string {
	skip := (page - 1) * pageSize

	query := "SELECT * FROM " + Quote(d.Table)
	if whereSQL != "" {
		query += " " + whereSQL
	}
	query += fmt.Sprintf(" ORDER BY %s %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
		Quote(sortColumn), direction, skip, pageSize)

	return query
}

// NestedTop pages the Access-dialect view family, which only understands
// TOP N. A middle slice is carved by selecting the first skip+size rows,
// taking the tail of that window in reversed order, and re-sorting the tail
// back to the requested direction. Reversing twice is the only way to reach
// a middle slice without scanning the whole view client-side.
//
// The tail width is clamped against the filtered total so a partial last
// page never re-reads rows that belong to the previous page.
type NestedTop struct{}

func (NestedTop) ListQuery(d Descriptor, whereSQL, sortColumn, direction string, page, pageSize, total int) string {
	col := Quote(sortColumn)
	from := Quote(d.Table)
	if whereSQL != "" {
		from += " " + whereSQL
	}

	if page == 1 {
		return fmt.Sprintf("SELECT TOP %d * FROM %s ORDER BY %s %s",
			pageSize, from, col, direction)
	}

	skip := (page - 1) * pageSize
	if skip >= total {
		return ""
	}

	tail := pageSize
	if remaining := total - skip; remaining < tail {
		tail = remaining
	}
	window := skip + tail

	return fmt.Sprintf(
		"SELECT * FROM ("+
			"SELECT TOP %d * FROM ("+
			"SELECT TOP %d * FROM %s ORDER BY %s %s"+
			") AS page_window ORDER BY %s %s"+
			") AS page_slice ORDER BY %s %s",
		tail,
		window, from, col, direction,
		col, reverse(direction),
		col, direction,
	)
}

func reverse(direction string) string {
	if direction == Descending {
		return Ascending
	}
	return Descending
}
