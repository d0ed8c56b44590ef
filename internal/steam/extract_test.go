package steam

import (
	"testing"
	"time"
)

func TestExtractMeta(t *testing.T) {
	local := func(y int, mo time.Month, d, h, mi, s int) time.Time {
		return time.Date(y, mo, d, h, mi, s, 0, time.Local)
	}

	tests := []struct {
		name       string
		folder     string
		wantGameID string
		wantTime   time.Time
	}{
		{
			name:       "clip with game id and timestamp",
			folder:     "clip_730_20240101123456",
			wantGameID: "730",
			wantTime:   local(2024, time.January, 1, 12, 34, 56),
		},
		{
			name:       "trailing suffix after timestamp",
			folder:     "bg_570_20231231235959_1",
			wantGameID: "570",
			wantTime:   local(2023, time.December, 31, 23, 59, 59),
		},
		{
			name:       "date-like prefix does not shadow timestamp",
			folder:     "20240101_730_20240101123456_0",
			wantGameID: "730",
			wantTime:   local(2024, time.January, 1, 12, 34, 56),
		},
		{
			name:       "fourteen digits but not a date keeps scanning",
			folder:     "clip_730_99999999999999",
			wantGameID: "730",
		},
		{
			name:       "no timestamp falls back to second token",
			folder:     "clip_440_extra",
			wantGameID: "440",
		},
		{
			name:   "fallback rejects timestamp-length token",
			folder: "clip_12345678901234",
		},
		{
			name:   "fallback rejects non-numeric token",
			folder: "clip_game_one",
		},
		{
			name:     "timestamp first token has no game id",
			folder:   "20240101123456_tail",
			wantTime: local(2024, time.January, 1, 12, 34, 56),
		},
		{
			name:       "non-numeric token before timestamp",
			folder:     "clip_x_20240101123456",
			wantGameID: "",
			wantTime:   local(2024, time.January, 1, 12, 34, 56),
		},
		{name: "empty name"},
		{name: "no underscores", folder: "clip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMeta(tt.folder)
			if got.GameID != tt.wantGameID {
				t.Errorf("GameID = %q, want %q", got.GameID, tt.wantGameID)
			}
			if !got.RecordedAt.Equal(tt.wantTime) {
				t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, tt.wantTime)
			}
		})
	}
}

func TestExtractMetaIsTotal(t *testing.T) {
	for _, name := range []string{"", "_", "___", "_20240101123456_", "a_b_c_d_e_f"} {
		_ = ExtractMeta(name)
	}
}
