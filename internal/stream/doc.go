// Package stream abstracts the byte source searched by the workers.
//
// A Source has a fixed total length and hands out independent Stream handles,
// one per worker, so that concurrent scans never share a file offset. Sources
// exist for local files, S3-compatible objects and in-memory buffers, and any
// Source can be wrapped with Throttle to cap aggregate read throughput.
package stream
