package validation

import "testing"

func TestValidateSend(t *testing.T) {
	cases := []struct {
		name     string
		sender   string
		receiver string
		content  string
		wantErr  bool
	}{
		{"ok", "alice", "bob", "hi", false},
		{"empty content", "alice", "bob", "", true},
		{"whitespace content", "alice", "bob", "   \t\n", true},
		{"empty sender", "", "bob", "hi", true},
		{"empty receiver", "alice", "", "hi", true},
		{"self send", "alice", "alice", "hi", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSend(tc.sender, tc.receiver, tc.content)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSendMaxLength(t *testing.T) {
	SetMaxContentLength(8)
	defer SetMaxContentLength(4096)
	if err := ValidateSend("a", "b", "123456789"); err == nil {
		t.Fatalf("expected length error")
	}
	if err := ValidateSend("a", "b", "12345678"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
