package las

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"go.viam.com/lascodec/pointcloud"
)

// Metadata keys exported by the reader and understood by the writer.
const (
	MetadataFileSourceID              = "FileSourceID"
	MetadataProjectID                 = "ProjectID"
	MetadataSystemID                  = "SystemID"
	MetadataGeneratingSoftware        = "GeneratingSoftware"
	MetadataFileCreationDate          = "FileCreationDate"
	MetadataPointRecordsByReturnCount = "PointRecordsByReturnCount"
	MetadataLASBBox                   = "LASBBox"
)

// creationDate converts a LAS year and 1-based day of year to YYYY-MM-DD.
func creationDate(year, day uint16) (string, bool) {
	if year < 1900 || day < 1 {
		return "", false
	}
	t := time.Date(int(year), time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(day)-1)
	return t.Format("2006-01-02"), true
}

// LoadMetadata adds the header fields and variable length records of the file to md.
//
// Records without a user id or payload are skipped, as is the classification table. Other
// LASF_Spec records are always kept and LASF_Projection records are kept unless the reader ignores
// native WKT. Any other record is kept only when sanitize is false.
func (r *Reader) LoadMetadata(md *pointcloud.Metadata, sanitize bool) {
	h := r.header
	if h.FileSourceID != 0 {
		md.AddString(MetadataFileSourceID, "", strconv.Itoa(int(h.FileSourceID)))
	}
	if h.ProjectID != uuid.Nil {
		md.AddString(MetadataProjectID, "", FormatProjectID(h.ProjectID))
	}
	if h.SystemID != "" {
		md.AddString(MetadataSystemID, "", h.SystemID)
	}
	if h.GeneratingSoftware != "" {
		md.AddString(MetadataGeneratingSoftware, "", h.GeneratingSoftware)
	}
	if date, ok := creationDate(h.CreationYear, h.CreationDay); ok {
		md.AddString(MetadataFileCreationDate, "", date)
	}
	counts := h.PointsByReturnCounts()
	for _, c := range counts {
		if c != 0 {
			md.AddReals(MetadataPointRecordsByReturnCount, "", counts[:]...)
			break
		}
	}
	md.AddReals(MetadataLASBBox, "", h.Min.X, h.Max.X, h.Min.Y, h.Max.Y, h.Min.Z, h.Max.Z)

	for _, v := range r.vlrs {
		if !r.exportVLR(v, sanitize) {
			continue
		}
		md.AddBlob(v.Key(), v.Description, v.Data)
	}
}

func (r *Reader) exportVLR(v VLR, sanitize bool) bool {
	switch {
	case v.UserID == "" || len(v.Data) == 0:
		return false
	case v.UserID == UserIDSpec && v.RecordID == RecordIDClassification:
		return false
	case v.UserID == UserIDSpec:
		return true
	case v.UserID == UserIDProjection:
		return !r.cfg.IgnoreNativeWKT
	default:
		return !sanitize
	}
}
