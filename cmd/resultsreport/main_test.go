package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = "time_period,subject_name,characteristic_value,entry_count," +
	"perc_astar_grade_achieved,perc_astar_a_grade_achieved,perc_astar_b_grade_achieved," +
	"perc_astar_c_grade_achieved,perc_astar_d_grade_achieved,perc_astar_e_grade_achieved\n" +
	"201920,Mathematics,All Students,100,10,30,50,70,90,99\n" +
	"202021,Mathematics,All Students,120,12,30,50,70,90,99\n" +
	"202021,Physics,All Students,80,20,30,50,70,90,99\n" +
	"202021,Physics,Female,30,25,30,50,70,90,99\n"

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "results.csv"), []byte(fixture), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	body := "[source]\ndriver = \"fs\"\nkey = \"results.csv\"\n\n[blob]\nfs_root = \"" + filepath.ToSlash(dir) + "\"\n"
	path := filepath.Join(dir, "resultsdash.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestReportCSVWithDefaults(t *testing.T) {
	code, out, errOut := runCLI(t, "-config", writeConfig(t), "-format", "csv")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := "Indicator,2019,2020\nentry_count,100,120\nperc_astar_grade_achieved,10,12\n"
	if !strings.HasPrefix(out, want) {
		t.Fatalf("unexpected csv:\n%s", out)
	}
}

func TestReportJSONSelection(t *testing.T) {
	code, out, errOut := runCLI(t, "-config", writeConfig(t), "-format", "json",
		"-mode", "absolute", "-characteristic", "Female", "-subject", "Physics", "-start", "2020", "-end", "2020")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var body struct {
		Parameters struct {
			Subjects []string `json:"subjects"`
			Mode     string   `json:"mode"`
		} `json:"parameters"`
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if body.Parameters.Mode != "absolute" || len(body.Parameters.Subjects) != 1 || body.Parameters.Subjects[0] != "Physics" {
		t.Fatalf("unexpected parameters %+v", body.Parameters)
	}
	if body.Data[1]["Indicator"] != "abs_astar_grade_achieved" || body.Data[1]["2020"] != 7.5 {
		t.Fatalf("unexpected abs row %+v", body.Data[1])
	}
}

func TestReportTextAndChart(t *testing.T) {
	chart := filepath.Join(t.TempDir(), "entries.png")
	code, out, errOut := runCLI(t, "-config", writeConfig(t), "-subject", "Mathematics", "-subject", "Physics", "-chart", chart)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "perc_astar_a_grade_achieved") {
		t.Fatalf("unexpected text output:\n%s", out)
	}
	b, err := os.ReadFile(chart)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("chart is not a png")
	}
}

func TestReportNothingToPlot(t *testing.T) {
	chart := filepath.Join(t.TempDir(), "entries.png")
	code, _, errOut := runCLI(t, "-config", writeConfig(t), "-subject", "Latin", "-chart", chart)
	if code != 1 || !strings.Contains(errOut, "nothing to plot") {
		t.Fatalf("expected nothing to plot failure, got %d %q", code, errOut)
	}
	if _, err := os.Stat(chart); !os.IsNotExist(err) {
		t.Fatalf("no chart file should be created")
	}
}

func TestReportUsageErrors(t *testing.T) {
	cases := [][]string{
		{"-mode", "ratio"},
		{"-format", "xml"},
		{"-bogus"},
	}
	for _, args := range cases {
		if code, _, _ := runCLI(t, args...); code != 2 {
			t.Fatalf("%v: expected exit 2, got %d", args, code)
		}
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	var codes []int
	old := exitFunc
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc = old }()

	oldArgs := os.Args
	os.Args = []string{"resultsreport", "-format", "xml"}
	defer func() { os.Args = oldArgs }()
	oldStderr := os.Stderr
	os.Stderr, _ = os.Open(os.DevNull)
	defer func() { os.Stderr = oldStderr }()
	main()
	if len(codes) != 1 || codes[0] != 2 {
		t.Fatalf("unexpected exit codes %v", codes)
	}
}
