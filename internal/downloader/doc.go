// Package downloader drives gallery-dl against classified links. It runs
// one subprocess at a time under a fixed-interval poll loop, enforces the
// per-link time, image-count, and file-size ceilings through a decision
// gateway, and streams progress and completion events to registered
// observers.
package downloader
