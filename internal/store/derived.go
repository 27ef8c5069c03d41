package store

import (
	"fmt"
	"time"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/dustin/go-humanize"
)

// notAvailable is shown wherever a metric cannot be computed.
const notAvailable = "N/A"

// inactivityDateLayout is the date format the backend uses for the
// inactivity shutdown and deletion dates.
const inactivityDateLayout = "2006-01-02"

// Deactivation is a rendered inactivity deadline.
type Deactivation struct {
	// Text is a human relative time, e.g. "3 weeks from now".
	Text string
	// Past reports whether the deadline has already elapsed.
	Past bool
}

// Derived carries the display values computed from an instance. They are
// recomputed on every refresh so the underlying Instance stays exactly
// as the backend sent it.
type Derived struct {
	// Uptime is a compact duration such as "4d 3h 12m", or N/A when the
	// instance is not running.
	Uptime string
	// MemUsage and DiskUsage are "used / total" ratios with percentages,
	// or N/A when the metric or the allocation is absent.
	MemUsage  string
	DiskUsage string
	// Shutdown and Deletion are the inactivity deadlines; zero-valued
	// when the instance is active or marked permanent.
	Shutdown Deactivation
	Deletion Deactivation
}

func deriveAll(instances []cloud.Instance, now time.Time) []Derived {
	derived := make([]Derived, len(instances))
	for i, instance := range instances {
		derived[i] = derive(instance, now)
	}
	return derived
}

func derive(instance cloud.Instance, now time.Time) Derived {
	d := Derived{
		Uptime:    formatUptime(instance),
		MemUsage:  formatUsage(instance.Mem, int64(instance.Specs.Memory)*1024*1024),
		DiskUsage: formatUsage(instance.Disk, int64(instance.Specs.DiskSpace)*1024*1024*1024),
	}
	if !instance.Active && !instance.Metadata.Permanent {
		d.Shutdown = deactivation(instance.InactivityShutdownDate, now)
		d.Deletion = deactivation(instance.InactivityDeletionDate, now)
	}
	return d
}

func formatUptime(instance cloud.Instance) string {
	if instance.Status != cloud.StatusRunning || instance.Uptime <= 0 {
		return notAvailable
	}
	uptime := time.Duration(instance.Uptime) * time.Second
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// formatUsage renders "used / total (pct%)" in bytes. Either side being
// zero means the metric is unavailable rather than genuinely zero, so
// the ratio is not rendered.
func formatUsage(used, total int64) string {
	if used <= 0 || total <= 0 {
		return notAvailable
	}
	percent := float64(used) / float64(total) * 100
	return fmt.Sprintf("%s / %s (%.0f%%)", humanize.IBytes(uint64(used)), humanize.IBytes(uint64(total)), percent)
}

func deactivation(date string, now time.Time) Deactivation {
	if date == "" {
		return Deactivation{}
	}
	deadline, err := time.Parse(inactivityDateLayout, date)
	if err != nil {
		return Deactivation{}
	}
	return Deactivation{
		Text: humanize.RelTime(deadline, now, "ago", "from now"),
		Past: deadline.Before(now),
	}
}
