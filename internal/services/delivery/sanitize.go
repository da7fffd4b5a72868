package delivery

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxNameBytes keeps "<name>.mp3" well under the 255-byte file name limit.
const maxNameBytes = 200

var (
	forbiddenChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// SanitizeFilename makes a name safe for the file system and for
// Content-Disposition headers. The result is never empty and never longer
// than maxNameBytes; truncation happens on a rune boundary.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	name = forbiddenChars.ReplaceAllString(name, "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = trimName(name)
	if len(name) > maxNameBytes {
		name = trimName(truncateUTF8(name, maxNameBytes))
	}
	if name == "" || name == "." || name == ".." {
		return "track"
	}
	return name
}

// TrackFilename is the mp3 name used for both chat uploads and HTTP downloads.
func TrackFilename(title string, artists []string) string {
	base := title
	if len(artists) > 0 {
		base = title + " - " + strings.Join(artists, ", ")
	}
	return SanitizeFilename(base) + ".mp3"
}

func trimName(name string) string {
	return strings.TrimSpace(strings.Trim(name, "_"))
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
