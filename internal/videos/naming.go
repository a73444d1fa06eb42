package videos

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxSlugLength = 64

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeTitle drops every character outside [a-zA-Z0-9] and lowercases the rest.
func SanitizeTitle(title string) string {
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(title, ""))
}

var formatsBySubtype = map[string]string{
	"mp4":               "mp4",
	"quicktime":         "mov",
	"webm":              "webm",
	"x-matroska":        "mkv",
	"x-msvideo":         "avi",
	"mpeg":              "mpeg",
	"ogg":               "ogv",
	"3gpp":              "3gp",
	"x-flv":             "flv",
	"x-ms-wmv":          "wmv",
	"x-m4v":             "m4v",
	"mp2t":              "ts",
	"h264":              "mp4",
	"vnd.dlna.mpeg-tts": "ts",
}

// FormatFor maps a declared media type to a container format. It reports
// false when the media type is not video/*.
func FormatFor(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	subtype, ok := strings.CutPrefix(mediaType, "video/")
	if !ok || subtype == "" {
		return "", false
	}
	if format, ok := formatsBySubtype[subtype]; ok {
		return format, true
	}
	return "mp4", true
}

// FileName builds video_<unixMillis>_<slug>_<suffix>.<format>. The random
// suffix keeps names unique when two uploads share a millisecond and title.
func FileName(now time.Time, title, format string) string {
	slug := SanitizeTitle(title)
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	if slug == "" {
		return fmt.Sprintf("video_%d_%s.%s", now.UnixMilli(), suffix, format)
	}
	return fmt.Sprintf("video_%d_%s_%s.%s", now.UnixMilli(), slug, suffix, format)
}
