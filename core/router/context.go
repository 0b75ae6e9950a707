package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default handler.Context implementation.
// Path parameters are read from the ServeMux pattern wildcards.
type Context struct {
	w http.ResponseWriter
	r *http.Request
}

// NewContext creates a Context for the given writer and request.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{w: w, r: r}
}

func (c *Context) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *Context) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *Context) Err() error                  { return c.r.Context().Err() }
func (c *Context) Value(key any) any           { return c.r.Context().Value(key) }

// SetValue stores val in the request context so later middleware and the
// response see it.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

// Request returns the current request, including values added with SetValue.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the response writer.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns the value of the path wildcard named key.
func (c *Context) Param(key string) string {
	return c.r.PathValue(key)
}
