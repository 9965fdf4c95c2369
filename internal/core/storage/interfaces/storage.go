package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/zeusync/tileboard/internal/core/board"
)

var ErrLayoutNotFound = errors.New("layout not found")

// LayoutStore persists named board layouts. Saving an existing name
// replaces its contents and keeps its id.
type LayoutStore interface {
	Save(ctx context.Context, name string, layout board.Layout) (string, error)
	Load(ctx context.Context, name string) (board.Layout, error)
	List(ctx context.Context) ([]LayoutInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

type LayoutInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tiles     int       `json:"tiles"`
	Active    int       `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
