package cli

import (
	"fmt"
	"time"
)

type ExportStep struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Error     string
}

func (s ExportStep) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

type ExportError struct {
	Route   string
	Message string
	Details []string
}

// ExportReport times the export steps and prints a summary at the end.
type ExportReport struct {
	out         *Output
	steps       []ExportStep
	warnings    []ExportError
	errors      []ExportError
	startTime   time.Time
	routeCount  int
	outputDir   string
	hasFailures bool
}

func NewExportReport(out *Output, outputDir string) *ExportReport {
	return &ExportReport{
		out:       out,
		steps:     make([]ExportStep, 0),
		warnings:  make([]ExportError, 0),
		errors:    make([]ExportError, 0),
		startTime: time.Now(),
		outputDir: outputDir,
	}
}

func (r *ExportReport) SetRouteCount(count int) {
	r.routeCount = count
}

// StartStep opens a step and returns its index for EndStep.
func (r *ExportReport) StartStep(name string) int {
	r.steps = append(r.steps, ExportStep{
		Name:      name,
		StartTime: time.Now(),
	})
	return len(r.steps) - 1
}

// EndStep closes step i. A nil err marks it successful.
func (r *ExportReport) EndStep(i int, err error) {
	step := &r.steps[i]
	step.EndTime = time.Now()
	step.Success = err == nil
	if err != nil {
		step.Error = err.Error()
		r.hasFailures = true
		r.out.PrintError("%s (%s)", step.Name, formatDuration(step.Duration()))
		return
	}
	r.out.PrintSuccess("%s %s", step.Name, r.out.Gray(formatDuration(step.Duration())))
}

func (r *ExportReport) AddWarning(route string, message string, details []string) {
	r.warnings = append(r.warnings, ExportError{
		Route:   route,
		Message: message,
		Details: details,
	})
}

func (r *ExportReport) AddError(route string, message string, details []string) {
	r.errors = append(r.errors, ExportError{
		Route:   route,
		Message: message,
		Details: details,
	})
	r.hasFailures = true
}

func (r *ExportReport) Steps() []ExportStep {
	return r.steps
}

func (r *ExportReport) HasFailures() bool {
	return r.hasFailures
}

func (r *ExportReport) Render() {
	duration := time.Since(r.startTime)
	w := r.out.Writer()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %d routes\n", r.routeCount)

	if len(r.errors) > 0 {
		fmt.Fprintln(w)
		r.out.PrintError("Errors (%d):", len(r.errors))
		r.renderErrors(r.errors)
	}

	if len(r.warnings) > 0 {
		fmt.Fprintln(w)
		r.out.PrintWarning("Warnings (%d):", len(r.warnings))
		r.renderErrors(r.warnings)
	}

	if r.hasFailures {
		failed := make([]string, 0)
		for _, step := range r.steps {
			if !step.Success && !step.EndTime.IsZero() {
				failed = append(failed, step.Name)
			}
		}
		fmt.Fprintln(w)
		if len(failed) > 0 {
			fmt.Fprintln(w, "Failed steps:")
			for _, name := range failed {
				fmt.Fprintf(w, "  %s%s\n", r.out.Red("✗ "), name)
			}
		}
		fmt.Fprintf(w, "  %s\n", r.out.Red(fmt.Sprintf("Export failed after %s", formatDuration(duration))))
	} else {
		r.out.PrintSuccess("Export complete in %s", formatDuration(duration))
	}

	if r.outputDir != "" {
		fmt.Fprintf(w, "\n  %s\n", r.out.Gray("Output: "+r.outputDir))
	}
}

func (r *ExportReport) renderErrors(errs []ExportError) {
	w := r.out.Writer()
	for _, err := range errs {
		fmt.Fprintf(w, "  %s %s\n", r.out.Red("✗"), err.Route)
		fmt.Fprintf(w, "    %s\n", err.Message)

		for _, detail := range deduplicateStrings(err.Details) {
			fmt.Fprintf(w, "      • %s\n", detail)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
}

// deduplicateStrings collapses repeats, keeping first-seen order.
func deduplicateStrings(items []string) []string {
	if len(items) <= 1 {
		return items
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(items))
	for _, item := range items {
		if counts[item] == 0 {
			order = append(order, item)
		}
		counts[item]++
	}

	result := make([]string, 0, len(order))
	for _, item := range order {
		if counts[item] > 1 {
			result = append(result, fmt.Sprintf("%s (%d occurrences)", item, counts[item]))
		} else {
			result = append(result, item)
		}
	}
	return result
}
