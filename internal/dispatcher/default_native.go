//go:build !(js && wasm)

package dispatcher

import (
	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/internal/wire"
)

func defaultFactory() handle.Factory {
	return wire.NewHandle
}
