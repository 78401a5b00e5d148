package generator

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

// BuildReport tallies one build run's outcome, adapted from the
// teacher's GenerationResult/PrintSummary (generator/types.go) to
// Allay's four content kinds instead of org-tag bookkeeping.
type BuildReport struct {
	ArticlesCompiled int
	GeneralCompiled  int
	StaticCopied     int
	WrappersSeen     int
	Errors           int
	startTime        time.Time
}

// SetStartTime records when the build began, for the printed duration.
func (r *BuildReport) SetStartTime(t time.Time) { r.startTime = t }

// Add returns a new report whose counters are the sums of r's and
// other's, for summing per-generator reports into one site-wide total.
// r itself is not modified, and the result has no start time set.
func (r BuildReport) Add(other BuildReport) BuildReport {
	return BuildReport{
		ArticlesCompiled: r.ArticlesCompiled + other.ArticlesCompiled,
		GeneralCompiled:  r.GeneralCompiled + other.GeneralCompiled,
		StaticCopied:     r.StaticCopied + other.StaticCopied,
		WrappersSeen:     r.WrappersSeen + other.WrappersSeen,
		Errors:           r.Errors + other.Errors,
	}
}

// PrintSummary prints a human-facing build summary, mirroring the
// teacher's pastel-colored report.
func (r BuildReport) PrintSummary() {
	duration := time.Since(r.startTime)

	pastelMagenta := color.RGB(255, 182, 193).SprintFunc()
	pastelBlue := color.RGB(173, 216, 230).SprintFunc()
	pastelGreen := color.RGB(152, 251, 152).SprintFunc()
	pastelRed := color.RGB(255, 160, 160).SprintFunc()
	pastelYellow := color.RGB(255, 255, 224).SprintFunc()

	fmt.Printf("\n%s\n\n", pastelMagenta("Build complete"))
	fmt.Printf("Articles compiled:  %s\n", pastelBlue(r.ArticlesCompiled))
	fmt.Printf("Pages compiled:     %s\n", pastelBlue(r.GeneralCompiled))
	fmt.Printf("Static files copied: %s\n", pastelGreen(r.StaticCopied))
	fmt.Printf("Wrappers seen:      %s\n", pastelBlue(r.WrappersSeen))
	if r.Errors > 0 {
		fmt.Printf("Errors:             %s\n", pastelRed(r.Errors))
	} else {
		fmt.Printf("Errors:             %s\n", pastelGreen(0))
	}
	fmt.Printf("Duration:           %s\n", pastelYellow(duration.Round(time.Millisecond)))
}
