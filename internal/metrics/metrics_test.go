package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leefowlercu/aocxchange/internal/version"
)

func TestHandler(t *testing.T) {
	SetBuildInfo("v0.0.0-test", "go1.25.1")
	RecordConversion("step", "stl", 1, 10*time.Millisecond, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{"aocx_conversions_total", "aocx_build_info", `version="v0.0.0-test"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecordConversion(t *testing.T) {
	ok := ConversionsTotal.WithLabelValues("iges", "brep", OutcomeConverted)
	failed := ConversionsTotal.WithLabelValues("iges", "brep", OutcomeFailed)
	shapes := ShapesTransferredTotal.WithLabelValues("brep")
	okBefore, failedBefore, shapesBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed), testutil.ToFloat64(shapes)

	RecordConversion("iges", "brep", 3, time.Second, nil)
	RecordConversion("iges", "brep", 0, time.Second, errors.New("read failure"))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("converted delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("failed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(shapes) - shapesBefore; got != 3 {
		t.Errorf("shapes delta = %v, want 3", got)
	}
}

func TestWatchMetrics(t *testing.T) {
	created := WatchEventsTotal.WithLabelValues("created")
	before := testutil.ToFloat64(created)
	skippedBefore := testutil.ToFloat64(WatchSkippedTotal)

	RecordWatchEvent("created")
	RecordSkip()
	SetWatchDirectories(4)

	if got := testutil.ToFloat64(created) - before; got != 1 {
		t.Errorf("created delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(WatchSkippedTotal) - skippedBefore; got != 1 {
		t.Errorf("skipped delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(WatchDirectories); got != 4 {
		t.Errorf("directories = %v, want 4", got)
	}
}

func TestSetBuildInfoReplacesLabels(t *testing.T) {
	SetBuildInfo("v1", "go1")
	SetBuildInfo(version.Get().Short(), "go2")

	if n := testutil.CollectAndCount(BuildInfo); n != 1 {
		t.Errorf("build info series = %d, want 1", n)
	}
}

func TestServe(t *testing.T) {
	// Find a free port, then hand it to Serve.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, slog.New(slog.DiscardHandler)) }()

	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics endpoint never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "aocx_") {
		t.Errorf("body does not contain aocx metrics")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	if err := Serve(context.Background(), "256.0.0.1:bad", slog.New(slog.DiscardHandler)); err == nil {
		t.Error("expected an error for an invalid address")
	}
}
