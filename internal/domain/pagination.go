package domain

// DefaultPageSize is the page size used when none is specified.
const DefaultPageSize = 50

// MaxPageSize is the largest page a caller may request.
const MaxPageSize = 500

// PageRequest holds pagination parameters for list operations.
type PageRequest struct {
	Size   int
	Offset int
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.Size <= 0 {
		return DefaultPageSize
	}
	if p.Size > MaxPageSize {
		return MaxPageSize
	}
	return p.Size
}

// Start returns the effective offset, never negative.
func (p PageRequest) Start() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// HasMore reports whether rows remain after the current page.
func (p PageRequest) HasMore(total int64) bool {
	return int64(p.Start()+p.Limit()) < total
}
