package scan

import (
	"fmt"
	"strconv"
	"strings"

	"stickerkit/pkg/imgutil"
)

func buildNotes(in inspection, details []Detail) []Note {
	notes := []Note{}

	if in.kind != imgutil.KindPNG {
		notes = append(notes, Note{Kind: "Format", Message: fmt.Sprintf("%s sources are not ingested; convert to PNG first.", strings.ToUpper(in.kind.String()))})
	}
	if in.png.Animated {
		notes = append(notes, Note{Kind: "Animation", Message: fmt.Sprintf("APNG with %d frames; only still images are ingested.", in.png.Frames)})
	}

	if !in.decoded.Empty() {
		if !in.content {
			notes = append(notes, Note{Kind: "Trim", Message: "Every pixel is transparent; the full canvas is kept."})
		} else if in.box.Width < in.decoded.Width() || in.box.Height < in.decoded.Height() {
			notes = append(notes, Note{Kind: "Trim", Message: fmt.Sprintf("Transparent border removed: %dx%d -> %dx%d.",
				in.decoded.Width(), in.decoded.Height(), in.box.Width, in.box.Height)})
		}
		if in.steps > 0 {
			notes = append(notes, Note{Kind: "Resize", Message: fmt.Sprintf("Large reduction: %d halving pass(es) before the final resample.", in.steps)})
		}
		if in.kind == imgutil.KindPNG && !in.png.HasAlpha() {
			notes = append(notes, Note{Kind: "Trim", Message: "No alpha channel; nothing will be trimmed."})
		}
	}

	if o := in.exif.Orientation; o != imgutil.OrientationNormal {
		notes = append(notes, Note{Kind: "Orientation", Message: fmt.Sprintf("EXIF orientation %d is applied before trimming.", o)})
	}

	values := flattenDetails(details)
	if gps := buildGPSNote(values); gps != nil {
		notes = append(notes, *gps)
	}
	if device := buildDeviceNote(values); device != nil {
		notes = append(notes, *device)
	}
	if ts := buildTimestampNote(values); ts != nil {
		notes = append(notes, *ts)
	}
	if in.exif.HasGPS || in.exif.HasModel || in.exif.HasTimestamp || len(in.png.TextKeys) > 0 {
		notes = append(notes, Note{Kind: "Metadata", Message: "Exported stickers carry none of this metadata."})
	}

	return notes
}

func flattenDetails(details []Detail) map[string][]string {
	values := make(map[string][]string)
	for _, detail := range details {
		for _, entry := range detail.Values {
			key, value := splitKeyValue(entry)
			if key == "" {
				continue
			}
			values[key] = append(values[key], value)
		}
	}
	return values
}

func buildGPSNote(values map[string][]string) *Note {
	latRaw := firstValue(values, "GPSLatitude")
	lonRaw := firstValue(values, "GPSLongitude")
	if latRaw == "" || lonRaw == "" {
		return nil
	}

	lat, okLat := parseGPSCoordinate(latRaw)
	lon, okLon := parseGPSCoordinate(lonRaw)
	if !okLat || !okLon {
		return nil
	}
	if firstValue(values, "GPSLatitudeRef") == "S" {
		lat = -lat
	}
	if firstValue(values, "GPSLongitudeRef") == "W" {
		lon = -lon
	}

	return &Note{Kind: "Location", Message: fmt.Sprintf("Embedded location: %.5f, %.5f", lat, lon)}
}

func buildDeviceNote(values map[string][]string) *Note {
	device := strings.TrimSpace(firstValue(values, "Make") + " " + firstValue(values, "Model"))
	if device == "" {
		return nil
	}
	return &Note{Kind: "Device", Message: fmt.Sprintf("Captured with: %s", device)}
}

func buildTimestampNote(values map[string][]string) *Note {
	ts := ""
	for _, key := range []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"} {
		if ts = firstValue(values, key); ts != "" {
			break
		}
	}
	if ts == "" {
		return nil
	}
	// EXIF writes dates as 2024:01:02.
	formatted := strings.Replace(ts, ":", "-", 2)
	return &Note{Kind: "Timeline", Message: fmt.Sprintf("Captured: %s", formatted)}
}

func splitKeyValue(entry string) (string, string) {
	key, value, ok := strings.Cut(entry, "=")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

func firstValue(values map[string][]string, key string) string {
	if list, ok := values[key]; ok && len(list) > 0 {
		return list[0]
	}
	return ""
}

// parseGPSCoordinate reads "[34/1 3/1 30/1]" style degree/minute/second lists.
func parseGPSCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return 0, false
	}

	total := 0.0
	scale := 1.0
	for i, part := range parts {
		if i > 2 {
			break
		}
		value, ok := parseRational(part)
		if !ok {
			return 0, false
		}
		total += value / scale
		scale *= 60
	}
	return total, true
}

func parseRational(part string) (float64, bool) {
	num, den, isFraction := strings.Cut(strings.TrimSpace(part), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if !isFraction {
		return n, true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}
