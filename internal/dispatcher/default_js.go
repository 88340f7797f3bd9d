//go:build js && wasm

package dispatcher

import (
	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/internal/jsxhr"
)

var browserFactory = &jsxhr.Factory{}

func defaultFactory() handle.Factory {
	return browserFactory.NewHandle
}
