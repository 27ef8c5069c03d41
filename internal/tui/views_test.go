package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/UCCNetsoc/cloud/internal/store"
)

func TestCreateInstanceTableRows(t *testing.T) {
	instances := []cloud.Instance{
		{Type: cloud.TypeLXC, Hostname: "blog", Status: cloud.StatusRunning, Active: true, Specs: cloud.Specs{Cores: 2}},
	}
	derived := []store.Derived{
		{Uptime: "3h 5m", MemUsage: "512 MiB / 1.0 GiB (50%)", DiskUsage: "N/A"},
	}

	tbl := createInstanceTable(instances, derived)
	rows := tbl.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	want := []string{"LXC", "blog", "Running", "3h 5m", "2", "512 MiB / 1.0 GiB (50%)", "N/A", "yes"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Errorf("row[%d] = %q, want %q", i, rows[0][i], cell)
		}
	}
}

func TestTextFieldInput(t *testing.T) {
	field := textField{numeric: true}

	field.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("8")})
	field.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	field.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("0")})
	if field.value != "80" {
		t.Errorf("value = %q, want %q", field.value, "80")
	}

	field.handleKey(tea.KeyMsg{Type: tea.KeyBackspace})
	if field.value != "8" {
		t.Errorf("value after backspace = %q, want %q", field.value, "8")
	}
}

func TestSecretFieldMasksDisplay(t *testing.T) {
	field := textField{secret: true}
	field.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hunter2")})
	if got := field.display(); got != "*******" {
		t.Errorf("display() = %q, want masked value", got)
	}
}
