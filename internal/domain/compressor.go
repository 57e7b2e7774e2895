package domain

import "io"

// Compressor wraps a writer so bytes written to it land compressed in dst.
type Compressor interface {
	NewWriter(dst io.Writer) (io.WriteCloser, error)
}
