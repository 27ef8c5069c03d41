package store

import (
	"testing"
	"time"

	"github.com/UCCNetsoc/cloud/internal/cloud"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name     string
		instance cloud.Instance
		want     string
	}{
		{
			name:     "stopped instance",
			instance: cloud.Instance{Status: cloud.StatusStopped, Uptime: 0},
			want:     "N/A",
		},
		{
			name:     "running without metric",
			instance: cloud.Instance{Status: cloud.StatusRunning, Uptime: 0},
			want:     "N/A",
		},
		{
			name:     "minutes only",
			instance: cloud.Instance{Status: cloud.StatusRunning, Uptime: 42 * 60},
			want:     "42m",
		},
		{
			name:     "hours and minutes",
			instance: cloud.Instance{Status: cloud.StatusRunning, Uptime: 3*3600 + 5*60},
			want:     "3h 5m",
		},
		{
			name:     "days",
			instance: cloud.Instance{Status: cloud.StatusRunning, Uptime: 2*86400 + 3600 + 60},
			want:     "2d 1h 1m",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatUptime(tt.instance); got != tt.want {
				t.Errorf("formatUptime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatUsage(t *testing.T) {
	tests := []struct {
		name  string
		used  int64
		total int64
		want  string
	}{
		{"metric missing", 0, 1 << 30, "N/A"},
		{"allocation missing", 512 << 20, 0, "N/A"},
		{"half used", 512 << 20, 1 << 30, "512 MiB / 1.0 GiB (50%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatUsage(tt.used, tt.total); got != tt.want {
				t.Errorf("formatUsage(%d, %d) = %q, want %q", tt.used, tt.total, got, tt.want)
			}
		})
	}
}

func TestDeriveDeactivation(t *testing.T) {
	now := time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("inactive instance has deadlines", func(t *testing.T) {
		d := derive(cloud.Instance{
			Active:                 false,
			InactivityShutdownDate: "2023-06-01",
			InactivityDeletionDate: "2023-07-01",
		}, now)
		if d.Shutdown.Text == "" || !d.Shutdown.Past {
			t.Errorf("Shutdown = %+v, want past deadline with text", d.Shutdown)
		}
		if d.Deletion.Text == "" || d.Deletion.Past {
			t.Errorf("Deletion = %+v, want future deadline with text", d.Deletion)
		}
	})

	t.Run("active instance has none", func(t *testing.T) {
		d := derive(cloud.Instance{
			Active:                 true,
			InactivityShutdownDate: "2023-06-01",
		}, now)
		if d.Shutdown != (Deactivation{}) {
			t.Errorf("Shutdown = %+v, want zero", d.Shutdown)
		}
	})

	t.Run("permanent instance has none", func(t *testing.T) {
		d := derive(cloud.Instance{
			Active:                 false,
			Metadata:               cloud.Metadata{Permanent: true},
			InactivityDeletionDate: "2023-06-01",
		}, now)
		if d.Deletion != (Deactivation{}) {
			t.Errorf("Deletion = %+v, want zero", d.Deletion)
		}
	})

	t.Run("unparseable date ignored", func(t *testing.T) {
		d := derive(cloud.Instance{InactivityShutdownDate: "soon"}, now)
		if d.Shutdown != (Deactivation{}) {
			t.Errorf("Shutdown = %+v, want zero", d.Shutdown)
		}
	})
}
