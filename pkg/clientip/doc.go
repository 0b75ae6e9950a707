// Package clientip extracts the client IP address from HTTP requests.
//
// Proxy headers are checked in this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost valid address)
//  4. X-Real-IP
//  5. RemoteAddr
//
// Headers are only honored when the service runs behind a proxy that
// overwrites them; pass WithoutProxyHeaders otherwise, or clients can pick
// their own address and dodge per-IP throttling.
package clientip
