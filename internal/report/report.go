// Package report renders a SessionSummary for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"route-auditor/pkg/types"
)

var rule = strings.Repeat("=", 70)

// Print writes the summary block followed by the route-by-route table.
func Print(w io.Writer, s types.SessionSummary) error {
	pw := &errWriter{w: w}

	pw.printf("\n%s\n", rule)
	pw.printf("ROUTE AUDIT SUMMARY\n")
	pw.printf("%s\n", rule)
	pw.printf("Base URL: %s\n", s.BaseURL)
	pw.printf("Run: %s at %s\n", s.RunID, s.Timestamp)
	pw.printf("Total routes tested: %d\n", s.TotalRoutes)
	pw.printf("Routes with content: %d/%d\n", s.RoutesWithContent, s.TotalRoutes)
	pw.printf("Routes with errors: %d/%d\n", s.RoutesWithErrors, s.TotalRoutes)
	pw.printf("Total JS errors: %d\n", s.TotalErrors)
	pw.printf("Success rate: %d/%d (%s)\n", s.Passed, s.TotalRoutes, percent(s.Passed, s.TotalRoutes))

	if len(s.ErrorsByRoute) > 0 {
		pw.printf("\nError summary by route:\n")
		// Route order, not map order.
		for _, r := range s.Routes {
			errs, ok := s.ErrorsByRoute[r.Route]
			if !ok {
				continue
			}
			pw.printf("  %s: %d error(s)\n", r.Route, len(errs))
		}
	}

	pw.printf("\n%s\n", rule)
	pw.printf("ROUTE-BY-ROUTE BREAKDOWN\n")
	pw.printf("%s\n", rule)
	for _, r := range s.Routes {
		pw.printf("%s %-30s %6d chars\n", status(r.Success), r.Route, r.ContentLength)
	}
	return pw.err
}

// WriteJSON encodes the summary as indented JSON.
func WriteJSON(w io.Writer, s types.SessionSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// SaveJSON writes the summary to path, creating parent directories.
func SaveJSON(path string, s types.SessionSummary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteJSON(fh, s); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

func status(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func percent(n, total int) string {
	if total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}

// errWriter keeps the first write error so Print can check once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
