package sessiontransport

import "errors"

var (
	// ErrNoToken is returned when the request carries no session cookie.
	ErrNoToken = errors.New("sessiontransport: no token")
	// ErrExpiredSession is returned when saving a session whose lifetime is over.
	ErrExpiredSession = errors.New("sessiontransport: cannot save expired session")
)
