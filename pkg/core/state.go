package core

import "context"

// Store defines the persistence operations for jobs and products.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Job operations
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)

	// Product operations
	SaveProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, label string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	DeleteProduct(ctx context.Context, label string) error
}
