package domain

import (
	"context"
)

// ContentSource defines the interface for reading documents from the content backend (e.g., Prismic).
// This allows the application to be decoupled from a specific CMS implementation.
type ContentSource interface {
	GetByType(ctx context.Context, typeName string, pageSize int) (Page, error)
	GetByUID(ctx context.Context, typeName string, uid string) (RawPost, error)
	FetchPage(ctx context.Context, url string) (Page, error)
}
