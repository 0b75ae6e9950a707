package clientip

import (
	"net"
	"net/http"
	"strings"
)

var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

type options struct {
	trustHeaders bool
}

// Option configures GetIP.
type Option func(*options)

// WithoutProxyHeaders makes GetIP use RemoteAddr only.
func WithoutProxyHeaders() Option {
	return func(o *options) { o.trustHeaders = false }
}

// GetIP returns the normalized client IP, or an empty string when none is valid.
func GetIP(r *http.Request, opts ...Option) string {
	o := options{trustHeaders: true}
	for _, opt := range opts {
		opt(&o)
	}

	if o.trustHeaders {
		for _, h := range proxyHeaders {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			if h == "X-Forwarded-For" {
				for part := range strings.SplitSeq(v, ",") {
					if ip := normalize(part); ip != "" {
						return ip
					}
				}
				continue
			}
			if ip := normalize(v); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return normalize(host)
}

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
