package steam

import (
	"os"
	"path/filepath"
)

// ResolveCaptureRoots returns every directory that directly contains clip
// folders for one account: the default gamerecordings tree plus, when
// configured and present, the custom recording root from localconfig.vdf.
// Each base contributes its clips/ (manual) and video/ (background)
// subdirectories; only existing ones are returned.
func ResolveCaptureRoots(userdataRoot, accountID string) []CaptureRoot {
	accountDir := filepath.Join(userdataRoot, accountID)

	var bases []string
	if std := filepath.Join(accountDir, "gamerecordings"); isDir(std) {
		bases = append(bases, std)
	}
	if custom, ok := customRecordPath(accountDir); ok {
		bases = append(bases, custom)
	}

	var roots []CaptureRoot
	for _, base := range bases {
		if clips := filepath.Join(base, "clips"); isDir(clips) {
			roots = append(roots, CaptureRoot{AccountID: accountID, Path: clips, Kind: KindManual})
		}
		if video := filepath.Join(base, "video"); isDir(video) {
			roots = append(roots, CaptureRoot{AccountID: accountID, Path: video, Kind: KindBackground})
		}
	}
	return roots
}

// ListAccounts enumerates the numeric account directories under the userdata
// root that have at least one capture root. An unreadable root is reported
// as an error; an empty one is simply an empty result.
func ListAccounts(userdataRoot string) ([]Account, error) {
	entries, err := os.ReadDir(userdataRoot)
	if err != nil {
		return nil, err
	}

	var accounts []Account
	for _, entry := range entries {
		if !entry.IsDir() || !allDigits(entry.Name()) {
			continue
		}
		roots := ResolveCaptureRoots(userdataRoot, entry.Name())
		if len(roots) == 0 {
			continue
		}
		accounts = append(accounts, Account{ID: entry.Name(), Roots: roots})
	}
	return accounts, nil
}
