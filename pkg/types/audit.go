package types

import "time"

// ConsoleKind classifies a browser console message.
type ConsoleKind string

const (
	ConsoleError   ConsoleKind = "error"
	ConsoleWarning ConsoleKind = "warning"
	ConsoleOther   ConsoleKind = "other"
)

// ConsoleMessage is a single console entry captured while a route was visited.
type ConsoleMessage struct {
	Kind ConsoleKind `json:"kind"`
	Text string      `json:"text"`
}

// RouteResult records the outcome of visiting one route.
type RouteResult struct {
	Route         string        `json:"route"`
	URL           string        `json:"url"`
	HasContent    bool          `json:"has_content"`
	ContentLength int           `json:"content_length"`
	TextLength    int           `json:"text_length"`
	ElementCount  int           `json:"element_count"`
	Errors        []string      `json:"errors"`
	Warnings      []string      `json:"warnings"`
	Success       bool          `json:"success"`
	Duration      time.Duration `json:"duration_ns"`
}

// SessionSummary aggregates every route visited during one run.
type SessionSummary struct {
	RunID             string              `json:"run_id"`
	Timestamp         string              `json:"timestamp"`
	BaseURL           string              `json:"base_url"`
	Routes            []RouteResult       `json:"routes"`
	TotalRoutes       int                 `json:"total_routes"`
	RoutesWithContent int                 `json:"routes_with_content"`
	RoutesWithErrors  int                 `json:"routes_with_errors"`
	TotalErrors       int                 `json:"total_errors"`
	Passed            int                 `json:"passed"`
	ErrorsByRoute     map[string][]string `json:"errors_by_route"`
}

// Failed reports whether at least one route did not pass.
func (s SessionSummary) Failed() bool {
	return s.Passed < s.TotalRoutes
}
