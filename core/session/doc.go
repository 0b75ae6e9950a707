// Package session manages server-side sessions for cookie-authenticated clients.
//
// A Session is created anonymous on first contact and already carries a CSRF
// token. Authenticate binds it to a user and rotates both the session token
// and the CSRF token, so a token seen before login is useless afterwards.
// Logout deletes the record and starts a new anonymous session.
//
// Sessions slide: every stored request extends ExpiresAt by the idle TTL, or by
// the remember TTL for sessions created with "remember me". Writes are
// throttled by the touch interval.
//
// # Stores
//
// Three Store implementations are provided:
//
//   - MemoryStore: process-local maps, for tests and single-instance deployments.
//   - RedisStore: JSON records with key TTLs.
//   - PgStore: the sessions table, with DeleteExpired used by Manager.Run.
//
// # Usage
//
//	mgr := session.NewManager(session.NewPgStore(pool),
//		session.WithTTL(2*time.Hour),
//		session.WithRememberTTL(30*24*time.Hour),
//	).WithLogger(log)
//
//	g.Go(mgr.Run(ctx)) // periodic cleanup of expired sessions
//
// Transports (see core/sessiontransport) decide how the token travels.
package session
