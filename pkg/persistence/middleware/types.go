// Package middleware wraps a ports.Store to transform runs on their way to and
// from storage.
package middleware

import (
	"io"

	"github.com/aretw0/flowengine/pkg/ports"
)

// Middleware allows wrapping a Store to add behavior.
type Middleware func(ports.Store) ports.Store

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.Store, mws ...Middleware) ports.Store {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// closeNext releases the wrapped store when it holds resources.
func closeNext(next ports.Store) error {
	if c, ok := next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
