package wire

import (
	"context"
	"net/http/httptrace"

	"github.com/frankli0324/go-xhr/netpool"
)

// hooks of the standard net package fire on their own once the trace
// is in the context, the ones below are the HTTP level events.

func traceGetConn(ctx context.Context, hostPort string) {
	if t := httptrace.ContextClientTrace(ctx); t != nil && t.GetConn != nil {
		t.GetConn(hostPort)
	}
}

func traceGotConn(ctx context.Context, c netpool.Conn) {
	if t := httptrace.ContextClientTrace(ctx); t != nil && t.GotConn != nil {
		t.GotConn(httptrace.GotConnInfo{Conn: c.Raw(), Reused: c.Reused(), WasIdle: c.Reused()})
	}
}

func traceWroteRequest(ctx context.Context, err error) {
	if t := httptrace.ContextClientTrace(ctx); t != nil && t.WroteRequest != nil {
		t.WroteRequest(httptrace.WroteRequestInfo{Err: err})
	}
}

func traceGotResponse(ctx context.Context) {
	if t := httptrace.ContextClientTrace(ctx); t != nil && t.GotFirstResponseByte != nil {
		t.GotFirstResponseByte()
	}
}
