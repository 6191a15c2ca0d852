package las

import (
	"bytes"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"go.viam.com/lascodec/crs"
	"go.viam.com/lascodec/logging"
	"go.viam.com/lascodec/pointcloud"
)

var _ pointcloud.PointReader = (*Reader)(nil)

// Reader is an opened LAS file. Everything it reports is fixed by Open, so its accessors are safe
// for concurrent use. Each iterator reads through its own file handle.
type Reader struct {
	fs     afero.Fs
	path   string
	cfg    ReaderConfig
	opts   options
	logger logging.Logger

	header     *Header
	format     recordFormat
	schema     *pointcloud.Schema
	vlrs       []VLR
	wkt        string
	classNames []string
	metadata   *pointcloud.Metadata
}

// Open reads the header and variable length records of the LAS file at path.
func Open(fs afero.Fs, path string, cfg ReaderConfig, logger logging.Logger, opts ...Option) (_ *Reader, err error) {
	if err := cfg.Validate("reader"); err != nil {
		return nil, err
	}
	r := &Reader{
		fs:     fs,
		path:   path,
		cfg:    cfg,
		opts:   newOptions(opts),
		logger: logging.OrGlobal(logger).Sublogger("las").WithFields("path", path),
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, pointcloud.NewIOError(err, "open "+path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	r.header, err = ReadHeader(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	if r.header.HasWaveform() && !cfg.TolerateWaveform {
		return nil, errors.Wrap(pointcloud.ErrWaveformNotSupported, path)
	}
	r.format, err = lookupFormat(r.header.PointFormat)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	if int(r.header.RecordLength) < r.format.length {
		return nil, pointcloud.NewFormatError("%s: record length %d is shorter than %d for format %d",
			path, r.header.RecordLength, r.format.length, r.header.PointFormat)
	}
	if r.header.Compressed && r.opts.codec == nil {
		return nil, pointcloud.NewUnsupportedVersionError("%s: compressed point data needs a codec", path)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, pointcloud.NewIOError(err, "stat "+path)
	}
	fileSize := info.Size()

	if _, err := f.Seek(int64(r.header.HeaderSize), io.SeekStart); err != nil {
		return nil, pointcloud.NewIOError(err, "seek VLRs")
	}
	vlrLimit := min(int64(r.header.OffsetToPointData), fileSize) - int64(r.header.HeaderSize)
	r.vlrs, err = readVLRs(f, r.header.NumVLRs, false, vlrLimit)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	if r.header.Version.Minor >= 4 && r.header.NumEVLRs > 0 && r.header.EVLRStart > 0 {
		if r.header.EVLRStart > uint64(fileSize) {
			return nil, pointcloud.NewFormatError("%s: EVLRs start at %d past the end of the file", path, r.header.EVLRStart)
		}
		if _, err := f.Seek(int64(r.header.EVLRStart), io.SeekStart); err != nil {
			return nil, pointcloud.NewIOError(err, "seek EVLRs")
		}
		evlrs, err := readVLRs(f, r.header.NumEVLRs, true, fileSize-int64(r.header.EVLRStart))
		if err != nil {
			return nil, errors.WithMessage(err, path)
		}
		r.vlrs = append(r.vlrs, evlrs...)
	}

	r.schema, err = ReaderSchema(r.header.PointFormat, r.header.Scale,
		r.header.GlobalEncoding&EncodingAdjustedGPSTime != 0)
	if err != nil {
		return nil, err
	}
	r.classNames = r.loadClassNames()
	r.wkt, err = r.resolveCRS()
	if err != nil {
		r.logger.Warnw("ignoring unreadable coordinate system", "error", err)
		r.wkt = ""
	}
	r.metadata = pointcloud.NewMetadata()
	r.LoadMetadata(r.metadata, cfg.Sanitize)

	r.logger.Debugw("opened point cloud",
		"format", r.header.FormatString(),
		"record_format", r.header.PointFormat,
		"points", r.header.NumPoints(),
		"vlrs", len(r.vlrs))
	return r, nil
}

func (r *Reader) loadClassNames() []string {
	v, ok := findVLR(r.vlrs, UserIDSpec, RecordIDClassification)
	if !ok {
		return DefaultClassNames(r.header.PointFormat)
	}
	names, err := ParseClassTable(v.Data)
	if err != nil {
		r.logger.Warnw("ignoring classification table", "error", err)
		return DefaultClassNames(r.header.PointFormat)
	}
	return names
}

// resolveCRS extracts the coordinate system from the projection records.
func (r *Reader) resolveCRS() (string, error) {
	var embedded string
	var directory, doubles, ascii []byte
	for _, v := range r.vlrs {
		if !v.IsProjection() {
			continue
		}
		switch v.RecordID {
		case RecordIDMathTransform, RecordIDCoordinateWKT:
			embedded = string(bytes.TrimRight(v.Data, "\x00"))
		case RecordIDGeoKeyDirectory:
			directory = v.Data
		case RecordIDGeoDoubleParams:
			doubles = v.Data
		case RecordIDGeoASCIIParams:
			ascii = v.Data
		}
	}
	var keys *crs.GeoKeys
	if directory != nil {
		var err error
		if keys, err = crs.ParseGeoKeys(directory, doubles, ascii); err != nil {
			if embedded == "" {
				return "", err
			}
			keys = nil
		}
	}
	return crs.Resolve(embedded, keys, r.opts.converter, r.opts.registry)
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string {
	return r.path
}

// Header returns a copy of the file header.
func (r *Reader) Header() Header {
	return *r.header
}

// VLRs returns the variable length records, extended ones last.
func (r *Reader) VLRs() []VLR {
	return r.vlrs
}

// RecordFormat returns the point data record format.
func (r *Reader) RecordFormat() uint8 {
	return r.header.PointFormat
}

// Schema implements pointcloud.PointSource.
func (r *Reader) Schema() *pointcloud.Schema {
	return r.schema
}

// NumPoints implements pointcloud.PointSource.
func (r *Reader) NumPoints() int64 {
	return r.header.NumPoints()
}

// Bounds implements pointcloud.PointSource. It is the extent declared by the header.
func (r *Reader) Bounds() pointcloud.Bounds {
	return r.header.Bounds()
}

// Quantization implements pointcloud.PointSource.
func (r *Reader) Quantization() (pointcloud.Quantization, bool) {
	return r.header.Quantization(), true
}

// CRS implements pointcloud.PointSource.
func (r *Reader) CRS() string {
	return r.wkt
}

// Metadata implements pointcloud.PointSource.
func (r *Reader) Metadata() *pointcloud.Metadata {
	return r.metadata
}

// ClassNames implements pointcloud.PointReader. The result is a copy.
func (r *Reader) ClassNames() []string {
	return slices.Clone(r.classNames)
}

// NewIterator implements pointcloud.PointReader. Every requested channel must be one the reader
// exposes; its datatype may differ and samples are cast.
func (r *Reader) NewIterator(
	bounds pointcloud.Bounds,
	fraction float64,
	schema *pointcloud.Schema,
	sink pointcloud.ProgressSink,
) (*pointcloud.Iterator, error) {
	if schema == nil {
		schema = r.schema
	}
	for _, name := range schema.Names() {
		if !r.schema.Has(name) {
			return nil, pointcloud.NewUnknownChannelError(name)
		}
	}
	filter, err := pointcloud.NewFilter(bounds, fraction)
	if err != nil {
		return nil, err
	}
	src, err := r.openSource(schema)
	if err != nil {
		return nil, err
	}
	return pointcloud.NewIterator(src, filter, schema, r.NumPoints(), sink), nil
}

// Close implements pointcloud.PointReader. Iterators own their handles, so there is nothing to
// release.
func (r *Reader) Close() error {
	return nil
}
