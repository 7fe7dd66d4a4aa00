package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("SHELTER_CONFIG", "")
	t.Setenv("SHELTER_KV_DRIVER", "blob")
	t.Setenv("SHELTER_BLOB_DRIVER", "fs")
	t.Setenv("SHELTER_BLOB_FS_ROOT", root)
	t.Setenv("SHELTER_FIXTURE_DRIVER", "embedded")
	t.Setenv("SHELTER_LOG_LEVEL", "error")
	return root
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := runCmd(t, "", args...)
	if code != 0 {
		t.Fatalf("%v exited %d: %s", args, code, errOut)
	}
	return out
}

func TestCollections(t *testing.T) {
	setupEnv(t)
	out := mustRun(t, "collections")
	if !strings.Contains(out, "animals\tanimalsData") || strings.Count(out, "\n") != 7 {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRecordCommandsPersistAcrossRuns(t *testing.T) {
	root := setupEnv(t)

	var listed map[string][]map[string]any
	if err := json.Unmarshal([]byte(mustRun(t, "list", "animals", "--filter", `species == "dog"`)), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed["animals"]) != 3 {
		t.Fatalf("expected 3 dogs, got %d", len(listed["animals"]))
	}

	var added map[string]any
	if err := json.Unmarshal([]byte(mustRun(t, "add", "animals", `{"name":"Tuzik","species":"dog"}`)), &added); err != nil {
		t.Fatalf("decode add: %v", err)
	}
	if added["id"] != float64(6) {
		t.Fatalf("expected id 6, got %v", added["id"])
	}
	if _, err := os.Stat(filepath.Join(root, "overlay", "animalsData")); err != nil {
		t.Fatalf("overlay file not written: %v", err)
	}

	// A fresh process sees the record through the overlay.
	if out := mustRun(t, "get", "animals", "6"); !strings.Contains(out, `"name": "Tuzik"`) {
		t.Fatalf("unexpected get output:\n%s", out)
	}
	if out := mustRun(t, "update", "animals", "6", `{"age":4}`); !strings.Contains(out, `"age": 4`) {
		t.Fatalf("unexpected update output:\n%s", out)
	}
	if _, _, code := runCmd(t, `[{"op":"replace","path":"/status","value":"reserved"}]`, "patch", "animals", "6", "-"); code != 0 {
		t.Fatalf("patch from stdin failed")
	}
	if out := mustRun(t, "get", "animals", "6"); !strings.Contains(out, `"status": "reserved"`) || !strings.Contains(out, `"age": 4`) {
		t.Fatalf("unexpected record after patch:\n%s", out)
	}

	diff := mustRun(t, "diff", "animals", "--no-color")
	if !strings.Contains(diff, "animals 6 (added)") || !strings.Contains(diff, `+   "name": "Tuzik"`) {
		t.Fatalf("unexpected diff:\n%s", diff)
	}
	if out := mustRun(t, "delete", "animals", "6"); !strings.Contains(out, "deleted animals 6") {
		t.Fatalf("unexpected delete output: %s", out)
	}
	if _, errOut, code := runCmd(t, "", "get", "animals", "6"); code != 1 || !strings.Contains(errOut, "not found") {
		t.Fatalf("expected not found, got %d %s", code, errOut)
	}
	if out := mustRun(t, "reset", "animals"); !strings.Contains(out, "reloaded animals: 5 records") {
		t.Fatalf("unexpected reset output: %s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	setupEnv(t)
	cases := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "unknown collection", args: []string{"list", "cats"}, want: "unknown collection"},
		{name: "bad filter", args: []string{"list", "animals", "--filter", "(("}, want: "filter"},
		{name: "bad json", args: []string{"add", "animals", "{"}, want: "invalid JSON"},
		{name: "empty stdin", args: []string{"add", "animals"}, want: "no JSON given"},
		{name: "null record", args: []string{"add", "animals", "null"}, want: "JSON object"},
		{name: "update missing", args: []string{"update", "animals", "99", `{"age":1}`}, want: "not found"},
		{name: "bad json patch", args: []string{"patch", "animals", "1", `{"op":"x"}`}, want: ""},
		{name: "delete missing", args: []string{"delete", "rooms", "99"}, want: "not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errOut, code := runCmd(t, tc.stdin, tc.args...)
			if code != 1 || !strings.Contains(errOut, tc.want) {
				t.Fatalf("expected failure containing %q, got %d %q", tc.want, code, errOut)
			}
		})
	}
}

func TestInvalidConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("SHELTER_KV_DRIVER", "redis")
	if _, errOut, code := runCmd(t, "", "list", "animals"); code != 1 || !strings.Contains(errOut, "unknown storage driver") {
		t.Fatalf("expected config error, got %d %s", code, errOut)
	}
}

func TestFixturesSeedFeedsBlobFixtures(t *testing.T) {
	root := setupEnv(t)
	out := mustRun(t, "fixtures", "seed")
	if strings.Count(out, "wrote data/") != 7 {
		t.Fatalf("unexpected seed output:\n%s", out)
	}
	if out := mustRun(t, "fixtures", "seed"); !strings.Contains(out, "already present") {
		t.Fatalf("second seed should skip, got:\n%s", out)
	}
	if err := os.WriteFile(filepath.Join(root, "data", "rooms.json"), []byte(`{"rooms":[{"id":40,"name":"Garden"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELTER_FIXTURE_DRIVER", "blob")
	if out := mustRun(t, "get", "rooms", "40"); !strings.Contains(out, "Garden") {
		t.Fatalf("blob fixture not used:\n%s", out)
	}
	if out := mustRun(t, "fixtures", "seed", "--overwrite"); strings.Count(out, "wrote") != 7 {
		t.Fatalf("overwrite should rewrite all fixtures:\n%s", out)
	}
}

func TestTraceWritesSpans(t *testing.T) {
	setupEnv(t)
	_, errOut, code := runCmd(t, "", "--trace", "list", "events")
	if code != 0 || !strings.Contains(errOut, `"events.load"`) {
		t.Fatalf("expected trace output, got %d %s", code, errOut)
	}
}

func TestServeRequiresFsBlobForWatch(t *testing.T) {
	setupEnv(t)
	t.Setenv("SHELTER_KV_DRIVER", "memory")
	t.Setenv("SHELTER_WATCH", "true")
	if _, errOut, code := runCmd(t, "", "serve", "--addr", "127.0.0.1:0"); code != 1 || !strings.Contains(errOut, "watch requires") {
		t.Fatalf("expected watch configuration error, got %d %s", code, errOut)
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	setupEnv(t)
	got := -1
	args := os.Args
	exitFunc = func(code int) { got = code }
	t.Cleanup(func() {
		exitFunc = os.Exit
		os.Args = args
	})
	os.Args = []string{"shelterctl", "collections"}
	main()
	if got != 0 {
		t.Fatalf("expected exit 0, got %d", got)
	}
}
