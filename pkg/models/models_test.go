package models

import (
	"reflect"
	"testing"
)

func TestCanTransitionMessageStatus(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"queued to sent", MessageQueued, MessageSent, true},
		{"sent to delivered", MessageSent, MessageDelivered, true},
		{"delivered to read", MessageDelivered, MessageRead, true},
		{"queued to read skips ahead", MessageQueued, MessageRead, true},
		{"read back to delivered", MessageRead, MessageDelivered, false},
		{"delivered back to sent", MessageDelivered, MessageSent, false},
		{"same status", MessageSent, MessageSent, false},
		{"anything to failed", MessageDelivered, MessageFailed, true},
		{"failed is terminal", MessageFailed, MessageSent, false},
		{"failed to failed", MessageFailed, MessageFailed, false},
		{"unknown source", "bogus", MessageSent, false},
		{"unknown target", MessageSent, "bogus", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransitionMessageStatus(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionMessageStatus(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTemplatePlaceholders(t *testing.T) {
	components := TemplateComponents{
		{Type: "HEADER", Format: "TEXT", Text: "Hola {{1}}"},
		{Type: "BODY", Text: "Tu pedido {{2}} llega el {{3}}. Gracias {{1}}."},
		{Type: "FOOTER", Text: "Responde STOP para salir"},
	}

	got := components.Placeholders()
	want := []string{"{{1}}", "{{2}}", "{{3}}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
}

func TestTemplatePlaceholdersEmpty(t *testing.T) {
	components := TemplateComponents{{Type: "BODY", Text: "sin variables"}}
	if got := components.Placeholders(); len(got) != 0 {
		t.Errorf("expected no placeholders, got %v", got)
	}
}

func TestPerformanceScanDefaults(t *testing.T) {
	var p Performance
	if err := p.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error: %v", err)
	}
	if p.AvgTime != "0m" || p.ActiveChats != 0 || p.Resolution != 0 {
		t.Errorf("Scan(nil) = %+v, want zero counters with 0m", p)
	}

	if err := p.Scan([]byte(`{"activeChats":3,"resolution":85}`)); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if p.ActiveChats != 3 || p.Resolution != 85 {
		t.Errorf("Scan kept %+v, want counters from payload", p)
	}
	if p.AvgTime != "0m" {
		t.Errorf("missing avgTime should default to 0m, got %q", p.AvgTime)
	}
}

func TestAvatarURL(t *testing.T) {
	got := AvatarURL("ana@acme.io")
	want := "https://i.pravatar.cc/150?u=ana%40acme.io"
	if got != want {
		t.Errorf("AvatarURL = %q, want %q", got, want)
	}
}

func TestStringListContains(t *testing.T) {
	tags := StringList{"vip", "premium"}
	if !tags.Contains("vip") {
		t.Error("expected Contains(vip) to be true")
	}
	if tags.Contains("nuevo") {
		t.Error("expected Contains(nuevo) to be false")
	}
}

func TestNewPaginationResult(t *testing.T) {
	result := NewPaginationResult([]int{1, 2, 3}, 10, 3, 6)
	if result.Page != 3 {
		t.Errorf("Page = %d, want 3", result.Page)
	}
	if result.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", result.TotalPages)
	}

	// Zero limit must not divide by zero
	result = NewPaginationResult([]int{}, 0, 0, 0)
	if result.Page != 1 || result.TotalPages != 1 {
		t.Errorf("zero limit result = %+v", result)
	}
}
