package shared

import (
	"path/filepath"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tc := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "https://example.com")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := filepath.Base(cmd.Args[0]); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "https://example.com" {
				t.Errorf("expected url as final argument, got %s", last)
			}
		})
	}
}
