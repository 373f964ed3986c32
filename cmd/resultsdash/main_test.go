package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fixture = "time_period,subject_name,characteristic_value,entry_count," +
	"perc_astar_grade_achieved,perc_astar_a_grade_achieved,perc_astar_b_grade_achieved," +
	"perc_astar_c_grade_achieved,perc_astar_d_grade_achieved,perc_astar_e_grade_achieved\n" +
	"201920,Mathematics,All Students,100,10,30,50,70,90,99\n"

func writeConfig(t *testing.T, csvBody string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "results.csv"), []byte(csvBody), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	cfg := "source:\n  driver: fs\n  key: results.csv\nblob:\n  fs_root: " + dir + "\n"
	path := filepath.Join(dir, "resultsdash.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMainUsesExitFunc(t *testing.T) {
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	oldArgs := os.Args
	os.Args = []string{"resultsdash", "-no-such-flag"}
	defer func() { os.Args = oldArgs }()
	main()
	if len(codes) != 1 || codes[0] != 2 {
		t.Fatalf("unexpected exit codes %v", codes)
	}
}

func TestCLIConfigErrors(t *testing.T) {
	var stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "read config") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestCLISourceFailureIsFatal(t *testing.T) {
	path := writeConfig(t, "subject_name\nMaths\n")
	if code := cli(context.Background(), []string{"-config", path, "-addr", "127.0.0.1:0"}, io.Discard); code != 1 {
		t.Fatalf("expected exit 1 for missing columns, got %d", code)
	}
}

func TestCLIServesUntilCancelled(t *testing.T) {
	path := writeConfig(t, fixture)
	addrCh := make(chan string, 1)
	old := onListen
	onListen = func(addr string) { addrCh <- addr }
	defer func() { onListen = old }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- cli(ctx, []string{"-config", path, "-addr", "127.0.0.1:0"}, io.Discard) }()

	var addr string
	select {
	case addr = <-addrCh:
	case code := <-done:
		t.Fatalf("server exited early with %d", code)
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not start")
	}

	for _, p := range []string{"/healthz", "/api/v1/summary", "/metrics"} {
		resp, err := http.Get("http://" + addr + p)
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", p, resp.StatusCode)
		}
		if p == "/metrics" && !strings.Contains(string(body), "resultsdash_dataset_rows 1") {
			t.Fatalf("metrics missing dataset gauge:\n%s", body)
		}
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("expected clean shutdown, got %d", code)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestCLIRejectsMetricsPathOverlap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resultsdash.yaml")
	body := "source:\n  driver: fs\n  key: results.csv\nblob:\n  fs_root: " + dir + "\nmetrics:\n  path: /\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-config", path, "-addr", "127.0.0.1:0"}, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "metrics.path") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}
