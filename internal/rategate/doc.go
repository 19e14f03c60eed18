// Package rategate provides admission control for outbound metadata API
// calls: a token bucket refilled by hard reset, a concurrency ceiling that
// adapts to upstream throttling, FIFO parking for requests that cannot be
// admitted, and retry-with-backoff semantics for recoverable rejections.
package rategate
