package transport

import (
	"context"
	"io"

	"github.com/frankli0324/go-xhr/internal/model"
)

// Transport writes requests to and reads responses from a single stream.
type Transport interface {
	Write(ctx context.Context, w io.Writer, req *model.Request) error
	Read(ctx context.Context, r io.Reader, req *model.Request, resp *model.Response) error
}

var _ Transport = HTTP1{}
