package domain

import "time"

// Asset is a servable compiled artifact with the metadata the HTTP boundary
// turns into caching headers. ETag is the content hash, so revalidation is
// exact: same bytes, same tag.
type Asset struct {
	Content      []byte
	ContentType  string
	ETag         string
	LastModified time.Time
}
