package las

import (
	"github.com/benbjohnson/clock"

	"go.viam.com/lascodec/crs"
)

type options struct {
	codec     Codec
	registry  crs.Registry
	converter crs.Converter
	clock     clock.Clock
}

// Option configures a Reader or Writer.
type Option func(*options)

// WithCodec supplies the codec for compressed point payloads.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithRegistry replaces the EPSG registry used to reconcile coordinate systems.
func WithRegistry(reg crs.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithConverter replaces the GeoTIFF key converter.
func WithConverter(conv crs.Converter) Option {
	return func(o *options) {
		o.converter = conv
	}
}

// WithClock sets the clock used to stamp the file creation date.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = crs.DefaultRegistry()
	}
	if o.converter == nil {
		o.converter = crs.NewEPSGConverter(o.registry)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o
}
