package pkg

import (
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

type (
	// Malformed root manifest, returned by LoadPointCloud
	StructuralError = octree.StructuralError
	// Malformed sub-hierarchy, the branch is excluded
	BranchError = octree.BranchError
	// Payload transport or parse failure of one node
	LoadError = loader.LoadError
)

var (
	ErrNodeDisposed   = loader.ErrNodeDisposed
	ErrLAZUnsupported = loader.ErrLAZUnsupported
	ErrLoaderClosed   = loader.ErrLoaderClosed
)
