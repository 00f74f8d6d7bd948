// Package blob provides durable byte storage for original media assets and
// generated thumbnails, addressed by relative path.
package blob
