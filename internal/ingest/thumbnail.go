package ingest

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
)

const (
	thumbnailSize    = 300
	thumbnailQuality = 85
)

// makeThumbnail renders a JPEG thumbnail from the original image bytes.
// Callers treat failure as non-fatal; formats imaging cannot decode
// simply go without a thumbnail.
func makeThumbnail(original []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, eris.Wrap(err, "thumbnail: decode")
	}

	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, eris.Wrap(err, "thumbnail: encode")
	}
	return buf.Bytes(), nil
}
