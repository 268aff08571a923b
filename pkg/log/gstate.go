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
	"sync"
	"sync/atomic"
)

type tracePointSet map[string]struct{}
type fileModeMap map[string]Mode

// Readers load the maps without locking; writers serialize on the mutex and
// swap in a modified copy.
var gstate struct {
	gmode atomic.Value // Mode

	mu          sync.Mutex
	tracePoints atomic.Value // tracePointSet
	fileModes   atomic.Value // fileModeMap
}

func init() {
	gstate.gmode.Store(DefaultMode)
	gstate.tracePoints.Store(make(tracePointSet))
	gstate.fileModes.Store(make(fileModeMap))
}

// SetGlobalLogMode sets the mode applied to files without an override.
func SetGlobalLogMode(m Mode) {
	gstate.gmode.Store(m)
}

// GetGlobalLogMode returns the mode applied to files without an override.
func GetGlobalLogMode() Mode {
	return gstate.gmode.Load().(Mode)
}

// SetTracePoint enables a tracepoint of the form file.go:line. Executing the
// logging statement at that position emits a backtrace, whatever its mode.
func SetTracePoint(tp string) {
	updateTracePoints(func(s tracePointSet) { s[tp] = struct{}{} })
}

// ResetTracePoint disables a tracepoint enabled by SetTracePoint.
func ResetTracePoint(tp string) {
	updateTracePoints(func(s tracePointSet) { delete(s, tp) })
}

// GetTracePoint reports whether tp is enabled.
func GetTracePoint(tp string) bool {
	_, ok := gstate.tracePoints.Load().(tracePointSet)[tp]
	return ok
}

// SetFileLogMode overrides the global mode for statements in fname.
func SetFileLogMode(fname string, m Mode) {
	updateFileModes(func(fm fileModeMap) { fm[fname] = m })
}

// ResetFileLogMode removes the override for fname.
func ResetFileLogMode(fname string) {
	updateFileModes(func(fm fileModeMap) { delete(fm, fname) })
}

// GetFileLogMode returns the override for fname, if any.
func GetFileLogMode(fname string) (m Mode, ok bool) {
	m, ok = gstate.fileModes.Load().(fileModeMap)[fname]
	return m, ok
}

func updateTracePoints(update func(tracePointSet)) {
	gstate.mu.Lock()
	defer gstate.mu.Unlock()

	cur := gstate.tracePoints.Load().(tracePointSet)
	next := make(tracePointSet, len(cur)+1)
	for tp := range cur {
		next[tp] = struct{}{}
	}
	update(next)
	gstate.tracePoints.Store(next)
}

func updateFileModes(update func(fileModeMap)) {
	gstate.mu.Lock()
	defer gstate.mu.Unlock()

	cur := gstate.fileModes.Load().(fileModeMap)
	next := make(fileModeMap, len(cur)+1)
	for fname, m := range cur {
		next[fname] = m
	}
	update(next)
	gstate.fileModes.Store(next)
}
