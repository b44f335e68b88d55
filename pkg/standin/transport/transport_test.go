package transport

import "testing"

func TestDialogDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		d    Dialog
		want string
	}{
		{"first and last", Dialog{Key: "1", FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", Dialog{Key: "1", FirstName: "Ada"}, "Ada"},
		{"last only", Dialog{Key: "1", LastName: "Lovelace"}, "Lovelace"},
		{"username fallback", Dialog{Key: "1", Username: "ada"}, "ada"},
		{"key fallback", Dialog{Key: "1"}, "1"},
		{"name beats username", Dialog{Key: "1", FirstName: "Ada", Username: "ada"}, "Ada"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.d.DisplayName(); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}
