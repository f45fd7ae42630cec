package relay

import "testing"

func TestAllowList(t *testing.T) {
	tests := []struct {
		name   string
		ids    []string
		chatID int64
		want   bool
	}{
		{"empty allows all", nil, 12345, true},
		{"blank entries ignored", []string{""}, 12345, true},
		{"listed", []string{"1", "12345"}, 12345, true},
		{"not listed", []string{"1", "2"}, 12345, false},
		{"negative group id", []string{"-100987"}, -100987, true},
		{"sign matters", []string{"100987"}, -100987, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewAllowList(tt.ids).Allows(tt.chatID); got != tt.want {
				t.Errorf("Allows(%d) = %v, want %v", tt.chatID, got, tt.want)
			}
		})
	}
}

func TestAllowListLen(t *testing.T) {
	if n := NewAllowList([]string{"1", "1", "2", ""}).Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}
