package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/rcliao/continuity/internal/continuity"
	"github.com/rcliao/continuity/internal/model"
	"github.com/rcliao/continuity/internal/store"
	"github.com/rcliao/continuity/internal/will"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	highColor   = color.New(color.FgRed)
	midColor    = color.New(color.FgYellow)
	lowColor    = color.New(color.FgGreen)
	dimColor    = color.New(color.FgHiBlack)
)

const timeLayout = "2006-01-02 15:04"

func textFormat() bool {
	return formatFlag == "text"
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func severityColor(s float64) *color.Color {
	switch {
	case s >= 0.7:
		return highColor
	case s >= 0.4:
		return midColor
	default:
		return lowColor
	}
}

func printEvents(events []model.ContinuityEvent) {
	if len(events) == 0 {
		fmt.Println(dimColor.Sprint("no events"))
		return
	}
	for _, ev := range events {
		sev := severityColor(ev.Severity).Sprintf("[%.2f]", ev.Severity)
		fmt.Printf("%s %-20s %s  %s\n", sev, ev.EventType,
			dimColor.Sprint(ev.CreatedAt.Local().Format(timeLayout)), ev.Description)
	}
}

func printRunResult(res *continuity.RunResult) {
	fmt.Printf("%s %s\n", headerColor.Sprint("run"), res.RunID)
	for _, t := range model.EventTypes {
		if n := res.Summary[t]; n > 0 {
			fmt.Printf("  %-20s %s\n", t, midColor.Sprint(n))
		}
	}
	if len(res.Failed) > 0 {
		fmt.Printf("  %s %s\n", highColor.Sprint("failed:"), strings.Join(res.Failed, ", "))
	}
	fmt.Println()
	printEvents(res.Events)
}

func printInsights(insights []model.Insight) {
	if len(insights) == 0 {
		fmt.Println(dimColor.Sprint("no insights"))
		return
	}
	for _, in := range insights {
		fmt.Printf("%s %s %s\n", headerColor.Sprintf("[%s]", in.InsightType),
			in.Text, dimColor.Sprintf("(confidence %.2f)", in.Confidence))
	}
}

func printProfile(p *model.ContinuityProfile) {
	fmt.Printf("%s v%d  %s\n", headerColor.Sprint("profile"), p.Version,
		dimColor.Sprintf("%d-day window, computed %s", p.WindowDays, p.ComputedAt.Local().Format(timeLayout)))

	fmt.Println(headerColor.Sprint("values"))
	for _, v := range p.PersistentValues {
		fmt.Printf("  %-14s %.2f  %d evidence, %s\n", v.Value, v.Confidence, v.EvidenceCount, strings.Join(v.Contexts, "/"))
	}
	fmt.Println(headerColor.Sprint("themes"))
	for _, th := range p.RecurringThemes {
		fmt.Printf("  %-14s x%d  %s\n", th.Theme, th.Frequency, th.IntensityTrend)
	}

	fmt.Printf("%s %.2f across %d version(s)\n", headerColor.Sprint("identity stability"),
		p.IdentityStabilityScore, len(p.IdentityVersions))
	last := "never"
	if p.LastWillEvent != nil {
		last = p.LastWillEvent.Local().Format(timeLayout)
	}
	fmt.Printf("%s density %.3f, %s, last %s\n", headerColor.Sprint("agency"), p.AgencyDensity, p.AgencyTrend, last)

	for _, f := range p.DriftFlags {
		fmt.Printf("%s %-8s %s\n", severityColor(f.Severity).Sprintf("[%.2f]", f.Severity), f.Type, f.Description)
	}
}

func printAgency(m *will.Metrics, windowDays int) {
	last := "never"
	if m.LastEvent != nil {
		last = m.LastEvent.Local().Format(timeLayout)
	}
	c := lowColor
	if m.Trend == model.TrendDecreasing {
		c = midColor
	}
	fmt.Printf("%s %d events in %d days, density %.3f, %s, last %s\n",
		headerColor.Sprint("agency"), m.Count, windowDays, m.Density, c.Sprint(m.Trend), last)
}

func printStats(st *store.Stats) {
	fmt.Printf("%s %s (%d bytes, %d users)\n", headerColor.Sprint("db"), st.DBPath, st.DBSizeBytes, st.Users)
	for _, t := range st.Tables {
		fmt.Printf("  %-20s %d\n", t.Table, t.Count)
	}
}
