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

// Package log implements leveled logging for nufs. Every statement is tagged
// with a mode (info, warn, error, fatal, debug); a global mode decides which
// statements are emitted, and per-file overrides can widen or narrow that for
// individual source files:
//
//     $ nufs mount -log-mode info|warn|error \
//                  -log-filter directory.go:debug,path.go:debug \
//                  -log-backtrace-at handlers.go:120 \
//                  -log-dir /var/log/nufs \
//                  disk.img /mnt/nufs
//
// Basic usage:
//
//      logger := log.New()
//      logger.Info("hello, world")
//
// Loggers are configured through variadic options at construction:
//
//      writer := log.SynchronizedWriter(os.Stderr)
//      writer = log.MultiWriter(writer,
//                      log.LogRotationWriter("/logs", 50 << 20 /* 50 MiB */))
//
//      logf := log.Lmode | log.Ldate | log.Ltime | log.Llongfile
//      logger := log.New(log.Writer(writer), log.Flags(logf))
package log
