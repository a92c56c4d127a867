// -----------------------------------------------------------------------
// Crash reports - last-resort panic capture for the main goroutine
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// WriteCrashReport writes a crash report into dir and returns its path.
// The report carries the panic value, the panicking stack and every goroutine.
func WriteCrashReport(dir string, panicVal interface{}, stackTrace string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crash directory: %w", err)
	}

	now := time.Now()
	crashPath := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	report.WriteString("=== PORTENT CRASH REPORT ===\n")
	fmt.Fprintf(&report, "Time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())

	report.WriteString("=== PANIC VALUE ===\n")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	report.WriteString("=== STACK TRACE ===\n")
	report.WriteString(stackTrace)
	report.WriteString("\n\n=== ALL GOROUTINES ===\n")
	report.WriteString(allGoroutineStacks())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	report.WriteString("\n=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "Alloc: %d MB, Sys: %d MB, NumGC: %d\n", memStats.Alloc/1024/1024, memStats.Sys/1024/1024, memStats.NumGC)
	report.WriteString("=== END CRASH REPORT ===\n")

	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write crash report: %w", err)
	}
	return crashPath, nil
}

// RecoverWithCrashFile is deferred at the top of main. A panic that reaches
// it is written to a crash report in dir and the process exits with 1.
func RecoverWithCrashFile(dir string) {
	if r := recover(); r != nil {
		path, err := WriteCrashReport(dir, r, StackTrace())
		if err != nil {
			fmt.Fprintf(os.Stderr, "CRASH: %v\npanic: %v\n%s\n", err, r, StackTrace())
		} else {
			fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\nPanic: %v\n", path, r)
		}
		os.Exit(1)
	}
}

// allGoroutineStacks returns the stacks of every goroutine, capped at 8MB
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 8*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
