//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T, repoRoot string) []string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs(),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "too many args",
			args: func(t *testing.T, _ string) []string {
				job := writeJob(t, validJob(t))
				return []string{job, "extra"}
			},
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown flag",
			args: func(t *testing.T, _ string) []string {
				job := writeJob(t, validJob(t))
				return []string{job, "--wat"}
			},
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "bgm gain non float",
			args: func(t *testing.T, _ string) []string {
				job := writeJob(t, validJob(t))
				return []string{job, "--bgm-gain", "loud"}
			},
			wantContains: []string{
				`invalid argument "loud" for "--bgm-gain"`,
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func TestRobustness_InvalidJobs(t *testing.T) {
	repoRoot := mustRepoRoot(t)

	cases := []robustCase{
		{
			name: "missing job file",
			args: staticArgs("/no/such/job.json"),
			wantContains: []string{
				"read job:",
			},
		},
		{
			name: "job is not json",
			args: func(t *testing.T, _ string) []string {
				path := filepath.Join(t.TempDir(), "job.json")
				if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
					t.Fatalf("write job fixture: %v", err)
				}
				return []string{path}
			},
			wantContains: []string{
				"parse job:",
			},
		},
		{
			name: "missing input media",
			args: func(t *testing.T, _ string) []string {
				job := validJob(t)
				job["input"] = "/no/such/input.mp4"
				return []string{writeJob(t, job)}
			},
			wantContains: []string{
				"config: stat input:",
			},
		},
		{
			name: "no segments",
			args: func(t *testing.T, _ string) []string {
				job := validJob(t)
				job["segments"] = []any{}
				return []string{writeJob(t, job)}
			},
			wantContains: []string{
				"at least one segment is required",
			},
		},
		{
			name: "bad orientation",
			args: func(t *testing.T, _ string) []string {
				job := writeJob(t, validJob(t))
				return []string{job, "--orientation", "diagonal"}
			},
			wantContains: []string{
				`unknown orientation "diagonal"`,
			},
		},
		{
			name: "bgm with path traversal",
			args: func(t *testing.T, _ string) []string {
				job := writeJob(t, validJob(t))
				return []string{job, "--bgm", "../../etc/passwd"}
			},
			wantContains: []string{
				"bare file name",
			},
		},
	}

	runRobustCases(t, repoRoot, cases)
}

func validJob(t *testing.T) map[string]any {
	t.Helper()
	input := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(input, []byte("not really media"), 0o644); err != nil {
		t.Fatalf("write input fixture: %v", err)
	}
	return map[string]any{
		"input": input,
		"segments": []any{
			map[string]any{"start": 0, "end": 5},
		},
	}
}

func writeJob(t *testing.T, job map[string]any) string {
	t.Helper()
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	path := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write job: %v", err)
	}
	return path
}

func runRobustCases(t *testing.T, repoRoot string, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, repoRoot, tc.args(t, repoRoot))
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

func runCLI(t *testing.T, repoRoot string, args []string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmdArgs := append([]string{"run", "./cmd/vcompose"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = repoRoot
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR": "1",
			"TERM":     "dumb",
		},
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: go %s", cliTimeout, strings.Join(cmdArgs, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		res.exitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return repoRoot
}

func staticArgs(args ...string) func(t *testing.T, _ string) []string {
	clone := append([]string(nil), args...)
	return func(t *testing.T, _ string) []string {
		t.Helper()
		return append([]string(nil), clone...)
	}
}
