package watch

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/aocxchange/internal/testutil"
	internalwatch "github.com/leefowlercu/aocxchange/internal/watch"
)

func createTestCommand() *cobra.Command {
	// Reset flag variables
	watchTo = "step"
	watchOutDir = ""
	watchInclude = nil
	watchOnce = false
	watchMetrics = ""

	cmd := &cobra.Command{
		Use:     WatchCmd.Use,
		Args:    WatchCmd.Args,
		PreRunE: WatchCmd.PreRunE,
		RunE:    WatchCmd.RunE,
	}
	cmd.Flags().StringVarP(&watchTo, "to", "t", "step", "")
	cmd.Flags().StringVar(&watchOutDir, "out-dir", "", "")
	cmd.Flags().StringSliceVar(&watchInclude, "include", nil, "")
	cmd.Flags().BoolVar(&watchOnce, "once", false, "")
	cmd.Flags().StringVar(&watchMetrics, "metrics-addr", "", "")
	return cmd
}

func TestWatchCmd_Once(t *testing.T) {
	env := testutil.NewTestEnv(t)
	dir := testutil.CreateDir(t, "parts")
	outDir := filepath.Join(t.TempDir(), "stl")
	testutil.WriteBox(t, filepath.Join(dir, "a.step"), 1, 1, 1)
	testutil.WriteBox(t, filepath.Join(dir, "b.igs"), 1, 1, 1)

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{dir, "--once", "--to", "stl", "--out-dir", outDir, "--include", "*.step"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("watch --once failed: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Converted 1, skipped 0, failed 0") || !strings.Contains(out, "Scanned 1 files") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.stl")); err != nil {
		t.Errorf("a.step not converted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "b.stl")); err == nil {
		t.Error("b.igs converted despite --include")
	}

	ledger, err := internalwatch.OpenLedger(context.Background(), env.LedgerPath())
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer ledger.Close()
	entries, err := ledger.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != internalwatch.OutcomeConverted {
		t.Errorf("ledger = %+v, want one converted entry", entries)
	}
}

func TestWatchCmd_RunUntilCancelled(t *testing.T) {
	testutil.NewTestEnv(t)
	dir := testutil.CreateDir(t, "parts")
	testutil.WriteBox(t, filepath.Join(dir, "a.stl"), 1, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := createTestCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{dir, "--to", "brep"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	dst := filepath.Join(dir, "converted", "a.brep")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(dst); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s not written", dst)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	if !strings.Contains(stdout.String(), "Converted 1") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestWatchCmd_MetricsAddr(t *testing.T) {
	testutil.NewTestEnv(t)
	dir := testutil.CreateDir(t, "parts")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := createTestCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{dir, "--metrics-addr", addr})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	var body string
	deadline := time.Now().Add(5 * time.Second)
	for body == "" {
		if time.Now().After(deadline) {
			t.Fatal("metrics endpoint never answered")
		}
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		body = string(data)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	if !strings.Contains(body, "aocx_build_info") || !strings.Contains(body, "aocx_watch_directories") {
		t.Errorf("metrics body missing aocx series:\n%s", body)
	}
}

func TestWatchCmd_Errors(t *testing.T) {
	testutil.NewTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{t.TempDir(), "--to", "dxf"}, "unknown format"},
		{"not a directory", []string{filepath.Join(t.TempDir(), "missing"), "--once"}, "not a directory"},
		{"bad include", []string{t.TempDir(), "--once", "--include", "[oops"}, "invalid include pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := createTestCommand()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
