// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func expectMatch(t *testing.T, buffer *bytes.Buffer, regex string) {
	t.Helper()

	match, err := regexp.Match(regex, buffer.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !match {
		t.Errorf("expected pattern: %q, got: %q", regex, buffer.String())
	}
	buffer.Reset()
}

func TestTracePoints(t *testing.T) {
	tp := "t.go:42"
	if GetTracePoint(tp) {
		t.Errorf("didn't expect tracepoint %s to be enabled", tp)
	}

	SetTracePoint(tp)
	if !GetTracePoint(tp) {
		t.Errorf("expected tracepoint %s to be enabled", tp)
	}

	ResetTracePoint(tp)
	if GetTracePoint(tp) {
		t.Errorf("expected tracepoint %s to be disabled after reset", tp)
	}
}

func TestLeveledLogging(t *testing.T) {
	SetGlobalLogMode(InfoMode | WarnMode | ErrorMode | DebugMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Info("info")
	expectMatch(t, buffer, `^I.*log_test\.go:\d+\] info\n$`)

	logger.Infof("%t %d %s", true, 1, "infof")
	expectMatch(t, buffer, `^I.*\] true 1 infof\n$`)

	logger.Warnf("warnf")
	expectMatch(t, buffer, `^W.*\] warnf\n$`)

	logger.Error("error")
	expectMatch(t, buffer, `^E.*\] error\n$`)

	logger.Debugf("debug %d", 7)
	expectMatch(t, buffer, `^D.*\] debug 7\n$`)
}

func TestGlobalModeFilters(t *testing.T) {
	SetGlobalLogMode(ErrorMode)
	defer SetGlobalLogMode(DefaultMode)

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Info("suppressed")
	logger.Debug("suppressed")
	if buffer.Len() != 0 {
		t.Errorf("expected no output, got: %q", buffer.String())
	}

	logger.Error("emitted")
	expectMatch(t, buffer, `^E.*\] emitted\n$`)
}

func TestFileModeOverride(t *testing.T) {
	SetGlobalLogMode(DisabledMode)
	defer SetGlobalLogMode(DefaultMode)
	SetFileLogMode("log_test.go", DebugMode)
	defer ResetFileLogMode("log_test.go")

	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer))

	logger.Debug("from override")
	expectMatch(t, buffer, `^D.*\] from override\n$`)

	logger.Info("filtered by override")
	if buffer.Len() != 0 {
		t.Errorf("expected no output, got: %q", buffer.String())
	}
}

func TestHeaderFlags(t *testing.T) {
	buffer := new(bytes.Buffer)
	logger := New(Writer(buffer), Flags(Lmode|Lshortfile))

	logger.Warn("short")
	expectMatch(t, buffer, `^W log_test\.go:\d+\] short\n$`)

	logger = New(Writer(buffer), Flags(0))
	logger.Warn("bare")
	expectMatch(t, buffer, `^ bare\n$`)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("info|debug")
	if err != nil {
		t.Fatal(err)
	}
	if m != InfoMode|DebugMode {
		t.Errorf("expected mode %v, got %v", InfoMode|DebugMode, m)
	}
	if m.String() != "info|debug" {
		t.Errorf("expected string %q, got %q", "info|debug", m.String())
	}

	if _, err := ParseMode("verbose"); err == nil {
		t.Error("expected error parsing unknown mode")
	}
}

func TestCommandFlags(t *testing.T) {
	var c CommandFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	c.Register(fs)

	err := fs.Parse([]string{
		"-log-mode", "warn|error",
		"-log-filter", "directory.go:debug,path.go:info",
		"-log-backtrace-at", "handlers.go:12",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Filter) != 2 || c.Filter[0].File != "directory.go" || c.Filter[1].Mode != InfoMode {
		t.Errorf("unexpected filters: %v", c.Filter.String())
	}
	if len(c.TracePoints) != 1 || c.TracePoints[0] != "handlers.go:12" {
		t.Errorf("unexpected tracepoints: %v", c.TracePoints)
	}

	if err := fs.Parse([]string{"-log-filter", "directory:debug"}); err == nil {
		t.Error("expected error for filter without .go suffix")
	}
}

func TestLogRotationWriter(t *testing.T) {
	dir, err := ioutil.TempDir("", "TestLogRotationWriter")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	w := LogRotationWriter(dir, 8)
	for _, line := range []string{"aaaaaa\n", "bbbbbb\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatal(err)
		}
	}

	link := filepath.Join(dir, program+".log")
	content, err := ioutil.ReadFile(link)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "bbbbbb\n" {
		t.Errorf("expected newest log to hold %q, got %q", "bbbbbb\n", content)
	}
}
