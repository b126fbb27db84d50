// Package api provides the HTTP client used by all provisioning calls
// against the Thunder server.
//
// The client speaks JSON to REST endpoints under a single configured base
// URL. Every call produces a Response carrying the numeric status code and
// the raw body; transport-level failures are reported in-band as
// StatusCode 0 with a descriptive error, so provisioners can branch on
// status codes uniformly:
//
//	resp := client.Post(ctx, "/organization-units", body)
//	switch {
//	case resp.Unreachable():
//	    // connection refused, timeout: the server is not there
//	case resp.StatusCode == http.StatusConflict:
//	    // resource already exists: adopt it
//	}
//
// TLS certificate verification is intentionally disabled because the local
// development server presents a self-signed certificate.
//
// The client never retries. Readiness polling (the only retry loop in the
// system) belongs to the server lifecycle manager, and provisioning steps
// are expected to be idempotent rather than retried.
package api
