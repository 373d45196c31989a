// Package imagex cleans uploaded thumbnails before they are stored.
package imagex

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// StripExif re-encodes JPEG data without its metadata, applying the EXIF
// orientation first. Data that is not a JPEG is returned unchanged.
func StripExif(data []byte) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return data, nil
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format != "jpeg" {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(75)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// StripExifReader is StripExif over a stream.
func StripExifReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return StripExif(data)
}
