// Package sessiontransport moves sessions between core/session and HTTP.
//
// The Cookie transport stores Session.Token in a signed, HTTP-only cookie and
// copies the session CSRF token into a second cookie (XSRF-TOKEN by default)
// that browser scripts read and echo back in the X-XSRF-TOKEN header.
//
//	cookies, _ := cookie.New(secrets)
//	mgr := session.NewManager(session.NewMemoryStore())
//	transport := sessiontransport.NewCookie(mgr, cookies)
//
//	r.Use(middleware.Session[*router.Context](transport))
//
// Load never fails on bad input: a missing, tampered, or expired cookie yields
// a fresh anonymous session. Store persists the session and rewrites cookies
// only when the client copy is out of date, so a plain authenticated request
// does not produce Set-Cookie headers until the sliding expiry moves.
package sessiontransport
