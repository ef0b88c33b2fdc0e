package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// logError appends a fatal run error to the error log, one timestamped
// entry per failure, indented for code formatting. This file is easier to
// review than the full event log.
func logError(path string, runErr error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open error log: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	stamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	entry := strings.ReplaceAll(runErr.Error(), "\n", "\n    ")
	fmt.Fprintf(f, "\n---------------\n### %s \n    %s\n", stamp, entry)
}
