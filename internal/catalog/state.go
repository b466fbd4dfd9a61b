package catalog

import (
	"github.com/xenking/procart/internal/domain/product"
)

// LoadStatus is the lifecycle state of the most recent catalog fetch.
type LoadStatus uint8

const (
	// StatusIdle means no fetch has been issued yet.
	StatusIdle LoadStatus = iota
	// StatusLoading means a fetch is in flight.
	StatusLoading
	// StatusLoaded means the last fetch succeeded.
	StatusLoaded
	// StatusFailed means the last fetch failed; see State.LastError.
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the catalog state.
type State struct {
	Products         []product.Product
	Categories       []string
	SelectedCategory string
	SearchQuery      string
	CurrentPage      int
	PageSize         int
	LoadStatus       LoadStatus
	// LastError is set only when LoadStatus is StatusFailed.
	LastError string
}
