package fanout

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"callpipe/internal/recording"
	"callpipe/internal/transcriber"
)

var titleCaser = cases.Title(language.English)

// renderReadable formats the plain-text transcript document. Segments are
// rendered as timestamped speaker turns when present, otherwise the raw
// transcript text is used.
func renderReadable(rec *recording.Recording, result transcriber.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Call Recording %s\n", rec.ProviderID)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", len("Call Recording ")+len(rec.ProviderID)))
	fmt.Fprintf(&b, "Direction: %s\n", titleCaser.String(rec.Direction))
	fmt.Fprintf(&b, "From:      %s\n", rec.FromNumber)
	fmt.Fprintf(&b, "To:        %s\n", rec.ToNumber)
	fmt.Fprintf(&b, "Started:   %s\n", rec.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n", formatDuration(rec.DurationSecs))
	if result.Language != "" {
		fmt.Fprintf(&b, "Language:  %s\n", result.Language)
	}
	b.WriteString("\n")

	if len(result.Segments) == 0 {
		b.WriteString(strings.TrimSpace(result.Text))
		b.WriteString("\n")
		return b.String()
	}

	for _, segment := range result.Segments {
		speaker := segment.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			formatOffset(segment.StartMS),
			titleCaser.String(speaker),
			strings.TrimSpace(segment.Text))
	}
	return b.String()
}

func formatDuration(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatOffset(ms int) string {
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
