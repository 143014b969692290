package di

import "context"

// Region is the AWS region override supplied via --region.
type Region string

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithRegion pins the AWS region instead of deferring to the SDK's
// default resolution chain.
func WithRegion(region string) Option {
	return func(opts *options) {
		opts.region = Region(region)
	}
}

// WithContext supplies the base context (carrying the logger) that
// providers receive.
func WithContext(ctx context.Context) Option {
	return func(opts *options) {
		opts.ctx = ctx
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() *stack.Engine { return stack.New(fake) },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	region    Region
	ctx       context.Context
	providers []any
}
