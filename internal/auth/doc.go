// Package auth implements the session login flow: the CSRF cookie
// handshake, login with a per credential and IP throttle, logout and the
// current user endpoint.
//
// Every login attempt is counted against ThrottleKey(credential, ip) before
// the password is checked, and a successful login clears the count. After
// Config.MaxAttempts failures inside Config.Decay the pair is locked out
// and Login fails with *ErrTooManyAttempts until the window closes.
// Unknown emails cost the same bcrypt work as wrong passwords.
package auth
