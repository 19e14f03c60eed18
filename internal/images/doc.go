// Package images downloads cover art referenced by library records.
package images
