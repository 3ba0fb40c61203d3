// Package http provides access-logging middleware for fiber and gRPC that
// feeds request/response data through the library's masking rules before it
// reaches the log sink.
//
// Header maps go through a fixed deny list (authorization, cookie,
// set-cookie, proxy-authorization) — a parallel, simpler masking path than
// the content detector used for payloads.
package http
