package querybuilder

// Page son los metadatos de paginación por offset.
type Page struct {
	Total       int  `json:"total"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"has_next_page"`
	NextOffset  *int `json:"next_offset"`
}

// NewPage calcula hasNextPage = offset+limit < total y nextOffset (nil en la última página).
func NewPage(offset, limit, total int) Page {
	p := Page{Total: total, Offset: offset, Limit: limit}
	if next := offset + limit; next < total {
		p.HasNextPage = true
		p.NextOffset = &next
	}
	return p
}
