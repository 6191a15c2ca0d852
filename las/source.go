package las

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"go.viam.com/lascodec/pointcloud"
)

// recordSource streams the raw records of one file through a private handle.
type recordSource struct {
	file     afero.File
	decoder  io.ReadCloser
	in       io.Reader
	format   recordFormat
	quant    pointcloud.Quantization
	bindings []fieldBinding

	raw       []byte
	remaining int64
	index     int64
	rec       Record
	closed    bool
}

var _ pointcloud.CandidateSource = (*recordSource)(nil)

func (r *Reader) openSource(schema *pointcloud.Schema) (_ *recordSource, err error) {
	f, err := r.fs.Open(r.path)
	if err != nil {
		return nil, pointcloud.NewIOError(err, "open "+r.path)
	}
	src := &recordSource{
		file:      f,
		format:    r.format,
		quant:     r.header.Quantization(),
		bindings:  bindFields(schema),
		raw:       make([]byte, r.header.RecordLength),
		remaining: r.header.NumPoints(),
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, src.Close())
		}
	}()
	if _, err := f.Seek(int64(r.header.OffsetToPointData), io.SeekStart); err != nil {
		return nil, pointcloud.NewIOError(err, "seek point data")
	}
	src.in = bufio.NewReaderSize(f, 64*len(src.raw)+4096)
	if r.header.Compressed {
		src.decoder, err = r.opts.codec.NewDecoder(src.in, r.header, r.vlrs)
		if err != nil {
			return nil, err
		}
		src.in = src.decoder
	}
	return src, nil
}

// Advance implements pointcloud.CandidateSource.
func (s *recordSource) Advance() (bool, error) {
	if s.remaining <= 0 {
		return false, nil
	}
	if _, err := io.ReadFull(s.in, s.raw); err != nil {
		return false, readError(err, fmt.Sprintf("read point %d", s.index))
	}
	s.rec.decode(s.format, s.raw)
	s.remaining--
	s.index++
	return true, nil
}

// Position implements pointcloud.CandidateSource.
func (s *recordSource) Position() (x, y, z float64) {
	p := s.quant.Decode(s.rec.X, s.rec.Y, s.rec.Z)
	return p.X, p.Y, p.Z
}

// Marshal implements pointcloud.CandidateSource.
func (s *recordSource) Marshal(buf *pointcloud.Buffer, i int) error {
	for _, b := range s.bindings {
		switch b.field {
		case fieldX:
			buf.SetFloat(b.channel, i, pointcloud.Dequantize(s.rec.X, s.quant.Offset.X, s.quant.Scale.X))
		case fieldY:
			buf.SetFloat(b.channel, i, pointcloud.Dequantize(s.rec.Y, s.quant.Offset.Y, s.quant.Scale.Y))
		case fieldZ:
			buf.SetFloat(b.channel, i, pointcloud.Dequantize(s.rec.Z, s.quant.Offset.Z, s.quant.Scale.Z))
		case fieldGPSTime:
			buf.SetFloat(b.channel, i, s.rec.GPSTime)
		default:
			buf.SetInt(b.channel, i, s.rec.intValue(b.field))
		}
	}
	return nil
}

// Close implements pointcloud.CandidateSource.
func (s *recordSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.decoder != nil {
		err = s.decoder.Close()
	}
	return multierr.Combine(err, s.file.Close())
}
