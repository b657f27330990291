package octree

import "context"

// Read access to an indexed octree
type ITree interface {
	Root() *Node
	Resolve(name string) (*Node, bool)
	Children(node *Node) [8]*Node
	Node(id NodeID) *Node
	Len() int
}

// Fetches hierarchy chunks given their path relative to the dataset manifest
type HierarchyFetcher interface {
	FetchHierarchy(ctx context.Context, path string) ([]byte, error)
}

type HierarchyFetcherFunc func(ctx context.Context, path string) ([]byte, error)

func (f HierarchyFetcherFunc) FetchHierarchy(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}
