// Package client is a Go SDK for the starter API.
//
// It keeps the session the way a browser does: cookies live in a jar, the
// XSRF-TOKEN cookie is echoed as the X-XSRF-TOKEN header on every request,
// and every request is marked with X-Requested-With.
//
//	c, err := client.New("https://example.com/api",
//		client.WithNotifier(client.NotifierFunc(func(ctx context.Context, t client.Toast) {
//			fmt.Println(t.Level, t.Message)
//		})),
//	)
//	if err != nil {
//		return err
//	}
//	if err := c.CSRFCookie(ctx); err != nil {
//		return err
//	}
//	u, err := c.Login(ctx, client.LoginRequest{Credential: "jane@example.com", Password: "secret"})
//
// Failed requests return *Error, classified by Kind. Form errors (422) are
// returned without a toast; authentication, permission, throttling and
// server errors are also reported to the Notifier. Wrap the context with
// Silent to suppress toasts, for example for the startup session probe.
// Nothing is retried.
package client
