package ports

import "context"

// Fetcher retrieves model sources and schema documents by location: a URL
// or a file path. Failures are reported as *errors.FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}
