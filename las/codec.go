package las

import (
	"io"
)

// Codec compresses and decompresses point payloads. The package ships no codec; files whose
// header marks the points as compressed can only be read or written when one is supplied.
type Codec interface {
	// NewDecoder returns a stream of uncompressed records of h.RecordLength bytes each, read
	// from the compressed payload in r. vlrs are the file's records, which carry the codec's
	// parameters.
	NewDecoder(r io.Reader, h *Header, vlrs []VLR) (io.ReadCloser, error)
	// NewEncoder returns a writer that compresses the records written to it into w. Close must
	// flush everything to w.
	NewEncoder(w io.Writer, h *Header) (io.WriteCloser, error)
	// VLRs returns the records a compressed file must carry for h.
	VLRs(h *Header) []VLR
}
