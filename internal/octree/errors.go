package octree

import "fmt"

// Malformed root manifest or root hierarchy. The dataset cannot be used.
type StructuralError struct {
	URL string
	Err error
}

func (e *StructuralError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("malformed point cloud manifest: %v", e.Err)
	}
	return fmt.Sprintf("malformed point cloud manifest %s: %v", e.URL, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// Malformed or unreachable sub-hierarchy. Only the branch rooted at Node is excluded.
type BranchError struct {
	Node string
	URL  string
	Err  error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("hierarchy of node r%s (%s) unusable: %v", e.Node, e.URL, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}

func structuralErrorf(format string, args ...interface{}) error {
	return &StructuralError{Err: fmt.Errorf(format, args...)}
}
