package imgutil

import (
	"errors"
	"fmt"
	"io"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// OrientationNormal is the EXIF orientation of an image that needs no transform.
const OrientationNormal = 1

// ExifTag is one flattened EXIF entry.
type ExifTag struct {
	IfdPath string
	Name    string
	Value   string
}

// ExifInfo summarizes an EXIF block.
type ExifInfo struct {
	// Orientation is the IFD0 orientation tag, 1 when absent or out of range.
	Orientation  int
	HasGPS       bool
	HasModel     bool
	HasTimestamp bool
	Tags         []ExifTag
}

// ReadExif parses a raw TIFF-structured EXIF payload such as the body of a PNG
// eXIf chunk. An empty payload yields the zero summary with normal orientation.
func ReadExif(payload []byte) (ExifInfo, error) {
	if len(payload) == 0 {
		return ExifInfo{Orientation: OrientationNormal}, nil
	}
	tags, _, err := exif.GetFlatExifData(payload, nil)
	if err != nil {
		if isNoExif(err) {
			return ExifInfo{Orientation: OrientationNormal}, nil
		}
		return ExifInfo{Orientation: OrientationNormal}, fmt.Errorf("parse exif: %w", err)
	}
	return summarize(tags), nil
}

// ReadExifSearch scans a whole file for an EXIF block. It is used for containers
// such as JPEG and TIFF where the block is not a separate chunk.
func ReadExifSearch(rs io.ReadSeeker) (ExifInfo, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return ExifInfo{Orientation: OrientationNormal}, err
	}
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if isNoExif(err) {
			return ExifInfo{Orientation: OrientationNormal}, nil
		}
		return ExifInfo{Orientation: OrientationNormal}, fmt.Errorf("search exif: %w", err)
	}
	return summarize(tags), nil
}

func summarize(tags []exif.ExifTag) ExifInfo {
	info := ExifInfo{Orientation: OrientationNormal}
	seenOrientation := false

	for _, tag := range tags {
		name := tag.TagName

		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			info.HasGPS = true
		}
		if name == "Model" || name == "Make" || name == "CameraModelName" {
			info.HasModel = true
		}
		if name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime" {
			info.HasTimestamp = true
		}
		if name == "Orientation" && !seenOrientation {
			seenOrientation = true
			if o := orientationValue(tag.Value); o >= 1 && o <= 8 {
				info.Orientation = o
			}
		}

		value := tag.Formatted
		if value == "" {
			value = tag.FormattedFirst
		}
		info.Tags = append(info.Tags, ExifTag{IfdPath: tag.IfdPath, Name: name, Value: value})
	}

	return info
}

func orientationValue(v interface{}) int {
	switch t := v.(type) {
	case []uint16:
		if len(t) > 0 {
			return int(t[0])
		}
	case uint16:
		return int(t)
	case []uint32:
		if len(t) > 0 {
			return int(t[0])
		}
	}
	return 0
}

func isNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
