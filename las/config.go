package las

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// DefaultScale is the quantization step the writer uses when the source has no fixed point grid.
const DefaultScale = 0.01

// ReaderConfig controls how a LAS file is opened.
type ReaderConfig struct {
	// TolerateWaveform opens files that announce full waveform data. The waveform packets are
	// never decoded.
	TolerateWaveform bool `json:"tolerate_waveform,omitempty"`
	// Sanitize limits the exported metadata to records defined by the LAS specification.
	Sanitize bool `json:"sanitize,omitempty"`
	// IgnoreNativeWKT leaves LASF_Projection records out of the exported metadata.
	IgnoreNativeWKT bool `json:"ignore_native_wkt,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ReaderConfig) Validate(path string) error {
	return nil
}

// WriterConfig controls the layout of a written LAS file.
type WriterConfig struct {
	// FileVersion forces a file version such as "1.2". Empty derives it from the record format.
	FileVersion string `json:"file_version,omitempty"`
	// OverrideProjectionVLRs drops projection records carried in the source metadata and writes
	// the source CRS instead.
	OverrideProjectionVLRs bool `json:"override_projection_vlrs,omitempty"`
	// Compressed writes the point payload through the writer's Codec.
	Compressed bool   `json:"compressed,omitempty"`
	SystemID   string `json:"system_id,omitempty"`
	// DefaultScale is used for X, Y and Z when the source has no quantization. Zero means
	// DefaultScale.
	DefaultScale float64 `json:"default_scale,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *WriterConfig) Validate(path string) error {
	if cfg.FileVersion != "" {
		if _, err := ParseVersion(cfg.FileVersion); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	if cfg.DefaultScale < 0 || math.IsNaN(cfg.DefaultScale) || math.IsInf(cfg.DefaultScale, 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid default_scale %v", cfg.DefaultScale))
	}
	if len(cfg.SystemID) > 32 {
		return utils.NewConfigValidationError(path, errors.Errorf("system_id %q is longer than 32 bytes", cfg.SystemID))
	}
	return nil
}

// version returns the forced file version, if any.
func (cfg *WriterConfig) version() (Version, bool, error) {
	if cfg.FileVersion == "" {
		return Version{}, false, nil
	}
	v, err := ParseVersion(cfg.FileVersion)
	if err != nil {
		return Version{}, false, err
	}
	return v, true, nil
}

func (cfg *WriterConfig) scale() float64 {
	if cfg.DefaultScale == 0 {
		return DefaultScale
	}
	return cfg.DefaultScale
}

func decodeAttributes(attributes map[string]interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: result})
	if err != nil {
		return err
	}
	return decoder.Decode(attributes)
}

// DecodeReaderConfig builds a ReaderConfig from untyped attributes and validates it.
func DecodeReaderConfig(path string, attributes map[string]interface{}) (*ReaderConfig, error) {
	var conf ReaderConfig
	if err := decodeAttributes(attributes, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(path); err != nil {
		return nil, err
	}
	return &conf, nil
}

// DecodeWriterConfig builds a WriterConfig from untyped attributes and validates it.
func DecodeWriterConfig(path string, attributes map[string]interface{}) (*WriterConfig, error) {
	var conf WriterConfig
	if err := decodeAttributes(attributes, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(path); err != nil {
		return nil, err
	}
	return &conf, nil
}
