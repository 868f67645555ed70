package httpapi

import "context"

// serverBaseCtx is cancelled when the process shuts down.
var serverBaseCtx = context.Background()

// SetBaseContext ties in-flight completions to ctx; nil resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// callContext derives the context of one completion from the request: it is
// cancelled by the client, by server shutdown, or by the request timeout.
// Request-scoped values such as the request id are preserved.
func callContext(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(serverBaseCtx, cancel)
	release := func() {
		stop()
		cancel()
	}
	if requestTimeout <= 0 {
		return ctx, release
	}
	tctx, tcancel := context.WithTimeout(ctx, requestTimeout)
	return tctx, func() {
		tcancel()
		release()
	}
}

// clientGone reports whether the caller or the server went away, in which
// case nothing should be written.
func clientGone(req context.Context) bool {
	return req.Err() != nil || serverBaseCtx.Err() != nil
}
