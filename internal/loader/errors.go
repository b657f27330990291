package loader

import (
	"errors"
	"fmt"
)

var (
	// Returned by futures whose node was disposed while the load was in flight
	ErrNodeDisposed = errors.New("node disposed before its payload was applied")
	// Returned by Submit when the work queue has no room left
	ErrQueueFull = errors.New("loader queue full")
	// Returned by Submit after Close
	ErrLoaderClosed = errors.New("loader closed")
	// LAZ payloads need a LASzip decompressor which is not available
	ErrLAZUnsupported = errors.New("LAZ compressed payloads are not supported")
)

type LoadErrorKind string

const (
	KindTransport LoadErrorKind = "transport"
	KindParse     LoadErrorKind = "parse"
)

// Transport or parse failure of one node payload. The node is marked failed and is not retried.
type LoadError struct {
	Node string
	URL  string
	Kind LoadErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s error loading node r%s (%s): %v", e.Kind, e.Node, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
