package las

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"go.viam.com/lascodec/logging"
	"go.viam.com/lascodec/pointcloud"
)

// GeneratingSoftware is stamped into the header of every written file.
const GeneratingSoftware = "lascodec"

var _ pointcloud.PointWriter = (*Writer)(nil)

type writerState int

const (
	writerCreated writerState = iota
	writerBegun
	writerEnded
)

// Writer writes one LAS file. It is not safe for concurrent use.
type Writer struct {
	fs     afero.Fs
	path   string
	cfg    WriterConfig
	opts   options
	logger logging.Logger

	state    writerState
	file     afero.File
	buffered *bufio.Writer
	encoder  io.WriteCloser
	out      io.Writer

	header   Header
	format   recordFormat
	raw      []byte
	schema   *pointcloud.Schema
	bindings []fieldBinding
	expected int64
	total    uint64
	stats    summary
	pending  []Record

	// maxLegacyCount is the largest total a pre-1.4 file can record.
	maxLegacyCount uint64
}

// NewWriter returns a writer that will create path on fs at WriteBegin.
func NewWriter(fs afero.Fs, path string, cfg WriterConfig, logger logging.Logger, opts ...Option) (*Writer, error) {
	if err := cfg.Validate("writer"); err != nil {
		return nil, err
	}
	w := &Writer{
		fs:             fs,
		path:           path,
		cfg:            cfg,
		opts:           newOptions(opts),
		logger:         logging.OrGlobal(logger).Sublogger("las").WithFields("path", path),
		maxLegacyCount: math.MaxUint32,
	}
	if cfg.Compressed && w.opts.codec == nil {
		return nil, pointcloud.NewUnsupportedVersionError("compressed output needs a codec")
	}
	return w, nil
}

// Header returns the header as it stands. It is final after WriteEnd.
func (w *Writer) Header() Header {
	return w.header
}

// WriteBegin implements pointcloud.PointWriter. It derives the record format from the source's
// schema, stamps the header, copies or derives the projection records and creates the file.
func (w *Writer) WriteBegin(ctx context.Context, src pointcloud.PointSource) error {
	if w.state != writerCreated {
		return errors.New("WriteBegin called twice")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(pointcloud.ErrOperationCancelled, err.Error())
	}
	schema := SupportedChannels(src.Schema())
	for _, name := range []string{pointcloud.ChannelX, pointcloud.ChannelY, pointcloud.ChannelZ} {
		if !schema.Has(name) {
			return pointcloud.NewUnknownChannelError(name)
		}
	}
	if dropped := unsupportedChannels(src.Schema()); len(dropped) > 0 {
		w.logger.Debugw("channels not stored in LAS", "channels", dropped)
	}

	format := DeriveRecordFormat(schema)
	w.format = recordFormats[format]
	version := VersionForFormat(format)
	if forced, ok, err := w.cfg.version(); err != nil {
		return err
	} else if ok {
		if forced.Less(minVersionForFormat(format)) {
			return pointcloud.NewUnsupportedVersionError("record format %d needs LAS %s or newer, not %s",
				format, minVersionForFormat(format), forced)
		}
		version = forced
	}

	now := w.opts.clock.Now().UTC()
	w.header = Header{
		Version:            version,
		SystemID:           w.cfg.SystemID,
		GeneratingSoftware: GeneratingSoftware,
		CreationDay:        uint16(now.YearDay()),
		CreationYear:       uint16(now.Year()),
		PointFormat:        format,
		RecordLength:       uint16(w.format.length),
		Compressed:         w.cfg.Compressed,
	}
	if schema.Has(pointcloud.ChannelGPSTimeAdjusted) {
		w.header.GlobalEncoding |= EncodingAdjustedGPSTime
	}
	w.header.Scale, w.header.Offset = w.quantization(src)

	vlrs, err := w.headerVLRs(src)
	if err != nil {
		return err
	}
	if w.cfg.Compressed {
		vlrs = append(vlrs, w.opts.codec.VLRs(&w.header)...)
	}
	w.header.NumVLRs = uint32(len(vlrs))
	offset := w.header.Version.HeaderSize()
	for _, v := range vlrs {
		offset += v.EncodedSize()
	}
	w.header.HeaderSize = uint16(w.header.Version.HeaderSize())
	w.header.OffsetToPointData = uint32(offset)

	if err := w.create(vlrs); err != nil {
		return err
	}
	w.schema = schema
	w.bindings = bindFields(schema)
	w.raw = make([]byte, w.format.length)
	w.expected = src.NumPoints()
	w.stats = newSummary()
	w.state = writerBegun

	w.logger.Debugw("writing point cloud",
		"format", w.header.FormatString(),
		"record_format", format,
		"vlrs", len(vlrs))
	return nil
}

// quantization returns the source's grid or a default one anchored at the source's minimum.
func (w *Writer) quantization(src pointcloud.PointSource) (scale, offset r3.Vector) {
	if q, ok := src.Quantization(); ok && q.Scale.X != 0 && q.Scale.Y != 0 && q.Scale.Z != 0 {
		return q.Scale, q.Offset
	}
	s := w.cfg.scale()
	scale = r3.Vector{X: s, Y: s, Z: s}
	bounds := src.Bounds()
	if bounds.IsEmpty() {
		return scale, r3.Vector{}
	}
	anchor := func(v float64) float64 {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0
		}
		return math.Floor(v)
	}
	corner := bounds.Min()
	return scale, r3.Vector{X: anchor(corner.X), Y: anchor(corner.Y), Z: anchor(corner.Z)}
}

// headerVLRs copies the header fields and projection records carried in the source metadata and
// derives projection records from the source CRS when none were carried.
func (w *Writer) headerVLRs(src pointcloud.PointSource) ([]VLR, error) {
	extended := w.format.extended
	var vlrs []VLR
	var hasGeoTIFF, hasWKT bool

	md := src.Metadata()
	if md == nil {
		md = pointcloud.NewMetadata()
	}
	for _, rec := range md.Records() {
		switch rec.Key {
		case MetadataSystemID:
			if s, ok := rec.Value.(string); ok && w.cfg.SystemID == "" {
				w.header.SystemID = s
			}
			continue
		case MetadataProjectID:
			if s, ok := rec.Value.(string); ok {
				id, err := ParseProjectID(s)
				if err != nil {
					w.logger.Warnw("ignoring malformed project id", "value", s, "error", err)
					continue
				}
				w.header.ProjectID = id
			}
			continue
		case MetadataFileSourceID:
			id, err := cast.ToUint64E(rec.Value)
			if err == nil && id > math.MaxUint16 {
				err = errors.Errorf("%d does not fit in 16 bits", id)
			}
			if err != nil {
				w.logger.Warnw("ignoring malformed file source id", "value", rec.Value, "error", err)
				continue
			}
			w.header.FileSourceID = uint16(id)
			continue
		}

		data, ok := rec.Value.([]byte)
		if !ok {
			continue
		}
		userID, recordID, ok := ParseVLRKey(rec.Key)
		if !ok || userID != UserIDProjection {
			continue
		}
		switch {
		case isGeoTIFFRecord(recordID):
			if w.cfg.OverrideProjectionVLRs || extended {
				continue
			}
			hasGeoTIFF = true
		case isWKTRecord(recordID):
			if w.cfg.OverrideProjectionVLRs {
				continue
			}
			hasWKT = true
		default:
			continue
		}
		vlrs = append(vlrs, VLR{UserID: userID, RecordID: recordID, Description: rec.Description, Data: data})
	}

	if !hasGeoTIFF && !hasWKT && src.CRS() != "" {
		wkt := src.CRS()
		if !w.header.Version.Less(Version14) || extended {
			vlrs = append(vlrs, VLR{
				UserID:   UserIDProjection,
				RecordID: RecordIDCoordinateWKT,
				Data:     append([]byte(wkt), 0),
			})
			hasWKT = true
		} else {
			keys, err := w.opts.converter.ToGeoKeys(wkt)
			if err != nil {
				return nil, errors.WithMessage(err, "LAS "+w.header.Version.String()+" needs the CRS as GeoTIFF keys")
			}
			directory, doubles, ascii := keys.Encode()
			vlrs = append(vlrs, VLR{UserID: UserIDProjection, RecordID: RecordIDGeoKeyDirectory, Data: directory})
			if len(doubles) > 0 {
				vlrs = append(vlrs, VLR{UserID: UserIDProjection, RecordID: RecordIDGeoDoubleParams, Data: doubles})
			}
			if len(ascii) > 0 {
				vlrs = append(vlrs, VLR{UserID: UserIDProjection, RecordID: RecordIDGeoASCIIParams, Data: ascii})
			}
		}
	}

	if hasWKT {
		w.header.GlobalEncoding |= EncodingWKT
	} else {
		w.header.GlobalEncoding &^= EncodingWKT
	}
	return vlrs, nil
}

// create writes the provisional header and the records, leaving the file positioned at the
// point data.
func (w *Writer) create(vlrs []VLR) (err error) {
	head, err := w.header.MarshalBinary()
	if err != nil {
		return err
	}
	for _, v := range vlrs {
		b, err := v.MarshalBinary()
		if err != nil {
			return err
		}
		head = append(head, b...)
	}

	f, err := w.fs.Create(w.path)
	if err != nil {
		return pointcloud.NewIOError(err, "create "+w.path)
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, f.Close(), w.fs.Remove(w.path))
		}
	}()
	if _, err := f.Write(head); err != nil {
		return pointcloud.NewIOError(err, "write header")
	}
	w.file = f
	w.buffered = bufio.NewWriterSize(f, 64*1024)
	w.out = w.buffered
	if w.cfg.Compressed {
		w.encoder, err = w.opts.codec.NewEncoder(w.buffered, &w.header)
		if err != nil {
			w.file = nil
			return err
		}
		w.out = w.encoder
	}
	return nil
}

// WritePoints implements pointcloud.PointWriter.
func (w *Writer) WritePoints(ctx context.Context, buf *pointcloud.Buffer, count int, sink pointcloud.ProgressSink) error {
	if w.state != writerBegun {
		return errors.New("WritePoints called outside a write session")
	}
	if err := pointcloud.CheckCancelled(ctx, sink, 0, w.expected); err != nil {
		return err
	}
	if count < 0 || count > buf.Count() {
		return errors.Errorf("cannot write %d points from a buffer holding %d", count, buf.Count())
	}
	total := w.total + uint64(count)
	if total > w.maxLegacyCount && w.header.Version.Less(Version14) {
		return pointcloud.NewRecordCountOverflowError(total, w.maxLegacyCount)
	}

	bindings := w.bindings
	if buf.Schema() != w.schema {
		for _, name := range []string{pointcloud.ChannelX, pointcloud.ChannelY, pointcloud.ChannelZ} {
			if !buf.Schema().Has(name) {
				return pointcloud.NewUnknownChannelError(name)
			}
		}
		bindings = bindFields(buf.Schema())
	}

	// Build the whole batch first so a coordinate off the grid leaves nothing half written.
	q := w.header.Quantization()
	w.pending = w.pending[:0]
	for i := 0; i < count; i++ {
		rec := Record{}
		for _, b := range bindings {
			var err error
			switch b.field {
			case fieldX:
				rec.X, err = quantizeCoordinate(buf.Float(b.channel, i), q.Offset.X, q.Scale.X)
			case fieldY:
				rec.Y, err = quantizeCoordinate(buf.Float(b.channel, i), q.Offset.Y, q.Scale.Y)
			case fieldZ:
				rec.Z, err = quantizeCoordinate(buf.Float(b.channel, i), q.Offset.Z, q.Scale.Z)
			case fieldGPSTime:
				rec.GPSTime = buf.Float(b.channel, i)
			default:
				rec.setIntValue(b.field, buf.Int(b.channel, i))
			}
			if err != nil {
				return errors.WithMessagef(err, "point %d", w.total+uint64(i))
			}
		}
		w.pending = append(w.pending, rec)
	}

	for i := range w.pending {
		rec := &w.pending[i]
		rec.encode(w.format, w.raw)
		if _, err := w.out.Write(w.raw); err != nil {
			return pointcloud.NewIOError(err, "write point")
		}
		w.stats.add(rec)
		w.total++
	}
	if sink != nil {
		sink.ReportProgress(int64(count), w.expected)
	}
	return nil
}

// quantizeCoordinate places v on the int32 grid, failing when it does not fit.
func quantizeCoordinate(v, offset, scale float64) (int32, error) {
	q := math.Floor((v-offset)/scale + 0.5)
	if math.IsNaN(q) || q < math.MinInt32 || q > math.MaxInt32 {
		return 0, pointcloud.NewFormatError("coordinate %v does not fit the grid (offset %v, scale %v)", v, offset, scale)
	}
	return pointcloud.Quantize[int32](v, offset, scale), nil
}

// WriteEnd implements pointcloud.PointWriter. A total of 0 with empty bounds marks the session as
// failed: the partial file is closed and removed. Otherwise the counts, return histogram and
// extent gathered while writing are patched into the header.
func (w *Writer) WriteEnd(totalCount int64, tightBounds pointcloud.Bounds) error {
	failed := totalCount == 0 && tightBounds.IsEmpty()
	if w.state != writerBegun {
		if failed {
			return nil
		}
		return errors.New("WriteEnd called outside a write session")
	}
	w.state = writerEnded

	if failed {
		err := multierr.Combine(w.closeOutput(), w.removeOutput())
		w.logger.Info("removed partial point cloud")
		return err
	}

	if uint64(totalCount) != w.total {
		w.logger.Warnw("point total differs from points written", "reported", totalCount, "written", w.total)
	}
	if err := w.finishHeader(); err != nil {
		return multierr.Combine(err, w.closeOutput(), w.removeOutput())
	}
	if err := w.flush(); err != nil {
		return multierr.Combine(err, w.closeOutput(), w.removeOutput())
	}
	head, err := w.header.MarshalBinary()
	if err != nil {
		return multierr.Combine(err, w.closeOutput(), w.removeOutput())
	}
	if _, err := w.file.WriteAt(head, 0); err != nil {
		return multierr.Combine(pointcloud.NewIOError(err, "patch header"), w.closeOutput(), w.removeOutput())
	}
	if err := w.closeOutput(); err != nil {
		return err
	}
	w.logger.Infow("wrote point cloud",
		"format", w.header.FormatString(),
		"record_format", w.header.PointFormat,
		"points", w.total)
	return nil
}

func (w *Writer) finishHeader() error {
	h := &w.header
	if h.Version.Less(Version14) {
		if w.total > w.maxLegacyCount {
			return pointcloud.NewRecordCountOverflowError(w.total, w.maxLegacyCount)
		}
		h.LegacyPointCount = uint32(w.total)
		for i := range h.LegacyPointsByReturn {
			h.LegacyPointsByReturn[i] = uint32(w.stats.byReturn[i+1])
		}
	} else {
		h.LegacyPointCount = 0
		if w.total <= w.maxLegacyCount {
			h.LegacyPointCount = uint32(w.total)
		}
		h.PointCount = w.total
		for i := range h.PointsByReturn {
			n := w.stats.byReturn[i+1]
			h.PointsByReturn[i] = n
			if i < len(h.LegacyPointsByReturn) {
				h.LegacyPointsByReturn[i] = 0
				if n <= w.maxLegacyCount {
					h.LegacyPointsByReturn[i] = uint32(n)
				}
			}
		}
	}
	h.Min, h.Max = w.stats.extent(h.Quantization())
	return nil
}

// flush pushes buffered points to the file.
func (w *Writer) flush() error {
	if w.encoder != nil {
		err := w.encoder.Close()
		w.encoder = nil
		if err != nil {
			return err
		}
	}
	if w.buffered != nil {
		if err := w.buffered.Flush(); err != nil {
			return pointcloud.NewIOError(err, "flush points")
		}
	}
	return nil
}

func (w *Writer) closeOutput() error {
	if w.file == nil {
		return nil
	}
	var err error
	if w.encoder != nil {
		err = w.encoder.Close()
		w.encoder = nil
	}
	err = multierr.Combine(err, w.file.Close())
	w.file = nil
	w.buffered = nil
	return err
}

func (w *Writer) removeOutput() error {
	if err := w.fs.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pointcloud.NewIOError(err, "remove "+w.path)
	}
	return nil
}
