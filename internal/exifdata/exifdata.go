// Package exifdata decodes the EXIF tag block of an uploaded image and
// normalizes the tags the ingestion pipeline cares about. Extraction is
// best-effort: anything unreadable yields a nil result, never an error.
package exifdata

import (
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"
)

// TimestampLayout is the wall-clock layout cameras write into
// DateTimeOriginal and DateTime. It carries no timezone.
const TimestampLayout = "2006:01:02 15:04:05"

// NormalizedExif is the semantic subset of an image's EXIF block.
// Every field is optional; absence means unknown, never zero.
type NormalizedExif struct {
	DateTimeOriginal string      `json:"dateTimeOriginal,omitempty"`
	DateTime         string      `json:"dateTime,omitempty"`
	GPS              *GPSInfo    `json:"gps,omitempty"`
	Make             string      `json:"make,omitempty"`
	Model            string      `json:"model,omitempty"`
	Dimensions       *Dimensions `json:"dimensions,omitempty"`

	// RawTags is the opaque tag-name-to-value mapping the decoder
	// produced. Persisted as its own blob, not part of the
	// normalized JSON shape.
	RawTags map[string]string `json:"-"`
}

// GPSInfo keeps the sexagesimal description strings alongside the
// decimal conversion. The decimal fields are set only when both
// descriptions parsed cleanly.
type GPSInfo struct {
	Latitude         string   `json:"latitude"`
	Longitude        string   `json:"longitude"`
	LatitudeDecimal  *float64 `json:"latitudeDecimal,omitempty"`
	LongitudeDecimal *float64 `json:"longitudeDecimal,omitempty"`
}

// Dimensions holds pixel width and height.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HasDecimalGPS reports whether a usable decimal coordinate pair was
// recovered.
func (e *NormalizedExif) HasDecimalGPS() bool {
	return e != nil && e.GPS != nil &&
		e.GPS.LatitudeDecimal != nil && e.GPS.LongitudeDecimal != nil
}

// CaptureTime derives the capture timestamp, preferring
// DateTimeOriginal over DateTime. The value is camera-local wall-clock
// time interpreted in the process's local zone with no offset applied.
func (e *NormalizedExif) CaptureTime() (time.Time, bool) {
	if e == nil {
		return time.Time{}, false
	}
	for _, raw := range []string{e.DateTimeOriginal, e.DateTime} {
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(TimestampLayout, raw, time.Local)
		if err != nil {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// Extract decodes the EXIF block from r. A missing or undecodable
// block, or one without any relevant tags, returns nil; callers treat
// nil as "no metadata available".
func Extract(r io.Reader) *NormalizedExif {
	x, err := exif.Decode(r)
	if err != nil {
		zap.L().Debug("exif: no decodable tag block", zap.Error(err))
		return nil
	}

	data := &NormalizedExif{RawTags: collectRawTags(x)}

	if v, ok := stringTag(x, exif.DateTimeOriginal); ok {
		data.DateTimeOriginal = v
	}
	if v, ok := stringTag(x, exif.DateTime); ok {
		data.DateTime = v
	}
	if v, ok := stringTag(x, exif.Make); ok {
		data.Make = v
	}
	if v, ok := stringTag(x, exif.Model); ok {
		data.Model = v
	}
	data.Dimensions = dimensions(x)
	data.GPS = gpsInfo(x)

	if data.isEmpty() {
		return nil
	}
	return data
}

func (e *NormalizedExif) isEmpty() bool {
	return e.DateTimeOriginal == "" && e.DateTime == "" &&
		e.GPS == nil && e.Make == "" && e.Model == "" && e.Dimensions == nil
}

// tagCollector accumulates every decoded field for the opaque raw blob.
type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tag.String()
	return nil
}

func collectRawTags(x *exif.Exif) map[string]string {
	tags := tagCollector{}
	if err := x.Walk(tags); err != nil {
		zap.L().Debug("exif: tag walk aborted", zap.Error(err))
	}
	return tags
}

func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	v, err := tag.StringVal()
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func intTag(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func dimensions(x *exif.Exif) *Dimensions {
	width, ok := intTag(x, exif.PixelXDimension)
	if !ok {
		width, ok = intTag(x, exif.ImageWidth)
	}
	if !ok {
		return nil
	}
	height, ok := intTag(x, exif.PixelYDimension)
	if !ok {
		height, ok = intTag(x, exif.ImageLength)
	}
	if !ok {
		return nil
	}
	return &Dimensions{Width: width, Height: height}
}

// gpsInfo renders the GPS tags into sexagesimal description strings and
// attaches the decimal pair when both convert. A failed conversion
// keeps the description strings; it never fails the extraction.
func gpsInfo(x *exif.Exif) *GPSInfo {
	lat, ok := dmsDescription(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return nil
	}
	lon, ok := dmsDescription(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return nil
	}

	info := &GPSInfo{Latitude: lat, Longitude: lon}

	latDec, latOK := ToDecimal(lat)
	lonDec, lonOK := ToDecimal(lon)
	if latOK && lonOK {
		info.LatitudeDecimal = &latDec
		info.LongitudeDecimal = &lonDec
	}
	return info
}

func dmsDescription(x *exif.Exif, coord, ref exif.FieldName) (string, bool) {
	tag, err := x.Get(coord)
	if err != nil {
		return "", false
	}
	refTag, err := x.Get(ref)
	if err != nil {
		return "", false
	}
	hemisphere, err := refTag.StringVal()
	if err != nil || hemisphere == "" {
		return "", false
	}

	var parts [3]float64
	for i := range parts {
		rat, ratErr := tag.Rat(i)
		if ratErr != nil {
			return "", false
		}
		parts[i], _ = rat.Float64()
	}
	return FormatDMS(parts[0], parts[1], parts[2], hemisphere), true
}
