package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs fn inside a single database transaction. The check-in
// and booking paths need all-or-nothing semantics across two writes.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
