package steam

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// localConfigValue scans a Valve VDF document for a top-level quoted
// key/value pair and returns the value of the first match. The format is
// loosely structured and Steam rewrites it freely, so this is deliberately a
// line scanner rather than a full parser: malformed lines are skipped, a
// missing file yields ("", false).
func localConfigValue(path, key string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	quoted := `"` + key + `"`
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, quoted) {
			continue
		}
		// Expected shape: "Key"		"value"
		parts := strings.Split(line, `"`)
		if len(parts) < 4 || parts[1] != key {
			continue
		}
		if v := parts[3]; v != "" {
			return v, true
		}
	}
	return "", false
}

// customRecordPath returns the account's configured alternate recording
// root, if any. The path stored in localconfig.vdf is only honoured when it
// still exists as a directory.
func customRecordPath(accountDir string) (string, bool) {
	localconfig := filepath.Join(accountDir, "config", "localconfig.vdf")
	value, ok := localConfigValue(localconfig, "BackgroundRecordPath")
	if !ok {
		return "", false
	}
	if !isDir(value) {
		return "", false
	}
	return value, true
}
