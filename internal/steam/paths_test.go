package steam

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveCaptureRootsDefaultTree(t *testing.T) {
	userdata := t.TempDir()
	base := filepath.Join(userdata, "1001", "gamerecordings")
	mkdirs(t, filepath.Join(base, "clips"), filepath.Join(base, "video"))

	roots := ResolveCaptureRoots(userdata, "1001")
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].Kind != KindManual || roots[0].Path != filepath.Join(base, "clips") {
		t.Errorf("first root = %+v, want manual clips dir", roots[0])
	}
	if roots[1].Kind != KindBackground || roots[1].Path != filepath.Join(base, "video") {
		t.Errorf("second root = %+v, want background video dir", roots[1])
	}
}

func TestResolveCaptureRootsPartialTree(t *testing.T) {
	userdata := t.TempDir()
	base := filepath.Join(userdata, "1001", "gamerecordings")
	mkdirs(t, filepath.Join(base, "clips"))

	roots := ResolveCaptureRoots(userdata, "1001")
	if len(roots) != 1 || roots[0].Kind != KindManual {
		t.Fatalf("got %+v, want only the manual root", roots)
	}
}

func TestResolveCaptureRootsCustomPath(t *testing.T) {
	userdata := t.TempDir()
	accountDir := filepath.Join(userdata, "1001")
	custom := t.TempDir()
	mkdirs(t,
		filepath.Join(accountDir, "config"),
		filepath.Join(custom, "clips"),
		filepath.Join(custom, "video"),
	)
	vdf := fmt.Sprintf("\"UserLocalConfigStore\"\n{\n\t\"BackgroundRecordPath\"\t\t%q\n}\n", custom)
	writeFile(t, filepath.Join(accountDir, "config", "localconfig.vdf"), vdf)

	roots := ResolveCaptureRoots(userdata, "1001")
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2 from custom path", len(roots))
	}
	for _, r := range roots {
		if filepath.Dir(r.Path) != custom {
			t.Errorf("root %q not under custom path %q", r.Path, custom)
		}
	}
}

func TestResolveCaptureRootsIgnoresVanishedCustomPath(t *testing.T) {
	userdata := t.TempDir()
	accountDir := filepath.Join(userdata, "1001")
	base := filepath.Join(accountDir, "gamerecordings")
	mkdirs(t, filepath.Join(accountDir, "config"), filepath.Join(base, "clips"))
	vdf := "\"BackgroundRecordPath\"\t\t\"/no/such/place\"\n"
	writeFile(t, filepath.Join(accountDir, "config", "localconfig.vdf"), vdf)

	roots := ResolveCaptureRoots(userdata, "1001")
	if len(roots) != 1 {
		t.Fatalf("got %+v, want just the default root", roots)
	}
}

func TestListAccounts(t *testing.T) {
	userdata := t.TempDir()
	mkdirs(t,
		filepath.Join(userdata, "1001", "gamerecordings", "clips"),
		filepath.Join(userdata, "2002"), // no capture roots
		filepath.Join(userdata, "notnumeric", "gamerecordings", "clips"),
	)
	writeFile(t, filepath.Join(userdata, "3003"), "a file, not an account")

	accounts, err := ListAccounts(userdata)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].ID != "1001" {
		t.Fatalf("accounts = %+v, want just 1001", accounts)
	}
	if len(accounts[0].Roots) != 1 {
		t.Errorf("account roots = %+v, want one", accounts[0].Roots)
	}
}

func TestListAccountsUnreadableRoot(t *testing.T) {
	if _, err := ListAccounts(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("want error for missing userdata root")
	}
}

func TestFindManifest(t *testing.T) {
	top := t.TempDir()
	writeFile(t, filepath.Join(top, "session.mpd"), "<MPD/>")
	if p, ok := FindManifest(top); !ok || p != filepath.Join(top, "session.mpd") {
		t.Errorf("top-level manifest not found: %q %v", p, ok)
	}

	nested := t.TempDir()
	mkdirs(t, filepath.Join(nested, "data"))
	writeFile(t, filepath.Join(nested, "data", "session.mpd"), "<MPD/>")
	if p, ok := FindManifest(nested); !ok || p != filepath.Join(nested, "data", "session.mpd") {
		t.Errorf("nested manifest not found: %q %v", p, ok)
	}

	if _, ok := FindManifest(t.TempDir()); ok {
		t.Error("manifest reported for empty dir")
	}
}

func TestLocalConfigValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "localconfig.vdf")
	writeFile(t, path, `"UserLocalConfigStore"
{
	garbage line without quotes
	"SomeKey"		"some value"
	"BackgroundRecordPath"		"/mnt/recordings"
	"BackgroundRecordPath"		"/mnt/second"
	"Empty"		""
}
`)

	if v, ok := localConfigValue(path, "BackgroundRecordPath"); !ok || v != "/mnt/recordings" {
		t.Errorf("got (%q, %v), want first match /mnt/recordings", v, ok)
	}
	if v, ok := localConfigValue(path, "SomeKey"); !ok || v != "some value" {
		t.Errorf("got (%q, %v), want some value", v, ok)
	}
	if _, ok := localConfigValue(path, "Empty"); ok {
		t.Error("empty value should not match")
	}
	if _, ok := localConfigValue(path, "Missing"); ok {
		t.Error("missing key should not match")
	}
	if _, ok := localConfigValue(filepath.Join(dir, "nope.vdf"), "Key"); ok {
		t.Error("missing file should not match")
	}
}
