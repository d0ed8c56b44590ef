package steam

import (
	"strings"
	"time"
)

// recordedAtLayout matches the 14-digit timestamp Steam embeds in clip
// folder names, e.g. clip_730_20240101123456 or bg_730_20240101123456_0.
const recordedAtLayout = "20060102150405"

// Meta is the metadata recoverable from a clip folder name. Both fields are
// best-effort: the naming convention is produced by Steam and has never been
// documented, so extraction can fail independently for either field. A zero
// RecordedAt means the timestamp could not be recovered.
type Meta struct {
	GameID     string
	RecordedAt time.Time
}

// ExtractMeta parses a clip folder basename into its app id and recording
// timestamp. It is total: any name yields a Meta, worst case the zero value.
//
// The folder name is underscore-delimited with no fixed token count. The
// timestamp is the last token that is exactly 14 digits and parses as
// YYYYMMDDHHMMSS; the app id is the all-digit token immediately before it.
// Without a timestamp token, the second token is taken as the app id when it
// is all digits and too short to be a timestamp itself.
func ExtractMeta(name string) Meta {
	tokens := strings.Split(name, "_")

	var meta Meta
	tsIndex := -1
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if len(tok) != 14 || !allDigits(tok) {
			continue
		}
		t, err := time.ParseInLocation(recordedAtLayout, tok, time.Local)
		if err != nil {
			// 14 digits but not a calendar date; keep scanning.
			continue
		}
		meta.RecordedAt = t
		tsIndex = i
		break
	}

	switch {
	case tsIndex > 0 && allDigits(tokens[tsIndex-1]):
		meta.GameID = tokens[tsIndex-1]
	case tsIndex == -1 && len(tokens) > 1 && allDigits(tokens[1]) && len(tokens[1]) < 14:
		meta.GameID = tokens[1]
	}

	return meta
}
