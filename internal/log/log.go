// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvVar names the environment variable holding the log level.
const EnvVar = "FLORACTL_LOG"

// InitLogger sets up Apex with a custom handler and a log level from the
// FLORACTL_LOG env variable. Unknown levels fall back to ERROR.
func InitLogger() {
	log.SetHandler(NewHandler(os.Stderr))

	l, err := log.ParseLevel(strings.ToLower(os.Getenv(EnvVar)))
	if err != nil {
		l = log.ErrorLevel
	}
	log.SetLevel(l)
}

// CustomHandler formats log messages, followed by any fields in key order.
// It writes to stderr so logging never mixes with command output.
type CustomHandler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a CustomHandler writing to w.
func NewHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := h.now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
