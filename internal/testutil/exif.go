// Package testutil builds tiny EXIF payloads for tests. The encoder
// covers just enough of the TIFF structure for goexif to decode: one
// primary IFD with pointers to an Exif sub-IFD and a GPS sub-IFD.
package testutil

import (
	"bytes"
	"encoding/binary"
)

// Tag values carried by the fixture, shared with the tests that decode
// it.
const (
	FixtureMake             = "Canon"
	FixtureModel            = "EOS R5"
	FixtureDateTime         = "2024:03:15 10:28:00"
	FixtureDateTimeOriginal = "2024:03:15 10:30:00"
	FixtureWidth            = 4000
	FixtureHeight           = 3000
)

// Decimal form of the fixture's GPS tags: 25 deg 2' 0" N, 121 deg 33' 0" E.
const (
	FixtureLatitude  = 25.0 + 2.0/60.0
	FixtureLongitude = 121.0 + 33.0/60.0
)

// GPSJPEG returns a JPEG whose APP1 section carries the fixture's GPS
// and timestamp EXIF tags. It has no pixel data: raster decoders fail
// on it, tag decoders succeed.
func GPSJPEG() []byte {
	payload := append([]byte("Exif\x00\x00"), gpsTIFF()...)

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(payload)+2))
	out.Write(length[:])
	out.Write(payload)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

func gpsTIFF() []byte {
	const (
		ifd0Entries = 5
		exifEntries = 3
		gpsEntries  = 4
	)
	// each IFD is a 2-byte count, 12 bytes per entry, 4-byte next link
	ifd0Off := uint32(8)
	exifOff := ifd0Off + 2 + 12*ifd0Entries + 4
	gpsOff := exifOff + 2 + 12*exifEntries + 4
	dataOff := gpsOff + 2 + 12*gpsEntries + 4

	var data bytes.Buffer
	place := func(b []byte) uint32 {
		off := dataOff + uint32(data.Len())
		data.Write(b)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
		return off
	}

	makeOff := place(asciiz(FixtureMake))
	modelOff := place(asciiz(FixtureModel))
	dtOff := place(asciiz(FixtureDateTime))
	dtoOff := place(asciiz(FixtureDateTimeOriginal))
	latOff := place(dmsRationals(25, 2, 0))
	lonOff := place(dmsRationals(121, 33, 0))

	var out bytes.Buffer
	out.WriteString("II")
	le(&out, uint16(42))
	le(&out, ifd0Off)

	le(&out, uint16(ifd0Entries))
	entry(&out, 0x010F, typeASCII, uint32(len(FixtureMake)+1), makeOff)  // Make
	entry(&out, 0x0110, typeASCII, uint32(len(FixtureModel)+1), modelOff) // Model
	entry(&out, 0x0132, typeASCII, uint32(len(FixtureDateTime)+1), dtOff) // DateTime
	entry(&out, 0x8769, typeLong, 1, exifOff)                             // Exif IFD pointer
	entry(&out, 0x8825, typeLong, 1, gpsOff)                              // GPS IFD pointer
	le(&out, uint32(0))

	le(&out, uint16(exifEntries))
	entry(&out, 0x9003, typeASCII, uint32(len(FixtureDateTimeOriginal)+1), dtoOff) // DateTimeOriginal
	entry(&out, 0xA002, typeLong, 1, FixtureWidth)                                 // PixelXDimension
	entry(&out, 0xA003, typeLong, 1, FixtureHeight)                                // PixelYDimension
	le(&out, uint32(0))

	le(&out, uint16(gpsEntries))
	entry(&out, 0x0001, typeASCII, 2, uint32('N')) // GPSLatitudeRef, inline
	entry(&out, 0x0002, typeRational, 3, latOff)   // GPSLatitude
	entry(&out, 0x0003, typeASCII, 2, uint32('E')) // GPSLongitudeRef, inline
	entry(&out, 0x0004, typeRational, 3, lonOff)   // GPSLongitude
	le(&out, uint32(0))

	out.Write(data.Bytes())
	return out.Bytes()
}

func le(w *bytes.Buffer, v any) {
	_ = binary.Write(w, binary.LittleEndian, v)
}

func entry(w *bytes.Buffer, id, typ uint16, count, value uint32) {
	le(w, id)
	le(w, typ)
	le(w, count)
	le(w, value)
}

func asciiz(s string) []byte {
	return append([]byte(s), 0)
}

func dmsRationals(deg, min, sec uint32) []byte {
	var out bytes.Buffer
	for _, v := range []uint32{deg, 1, min, 1, sec, 1} {
		le(&out, v)
	}
	return out.Bytes()
}
