package retriever

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelbatch/internal/errs"
)

func TestParseStdout(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		wantID       string
		wantFilename string
		wantErr      bool
	}{
		{
			name:         "json line followed by filepath line",
			stdout:       `{"id":"C-abc123","title":"My Reel","ext":"mp4","duration":12.5,"width":720,"height":1280}` + "\n/tmp/work/C-abc123.mp4\n",
			wantID:       "C-abc123",
			wantFilename: "/tmp/work/C-abc123.mp4",
		},
		{
			name:    "json only, no filepath",
			stdout:  `{"id":"xyz","title":"t","ext":"mp4"}` + "\n",
			wantID:  "xyz",
			wantErr: false,
		},
		{
			name:    "empty stdout",
			stdout:  "",
			wantErr: true,
		},
		{
			name:    "garbage only",
			stdout:  "warning: something\nnot json at all\n",
			wantErr: true,
		},
		{
			name:         "noise lines between json and filepath",
			stdout:       `{"id":"abc","title":"t"}` + "\n\n/tmp/x/abc.mp4\n",
			wantID:       "abc",
			wantFilename: "/tmp/x/abc.mp4",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseStdout(tc.stdout)
			if tc.wantErr {
				if err == nil {
					t.Fatal("parseStdout() expected error, got nil")
				}

				return
			}
			if err != nil {
				t.Fatalf("parseStdout() error: %v", err)
			}

			if got.ID != tc.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tc.wantID)
			}

			if got.Filename != tc.wantFilename {
				t.Errorf("Filename = %q, want %q", got.Filename, tc.wantFilename)
			}
		})
	}
}

func TestVerifyOrRecover(t *testing.T) {
	dir := t.TempDir()

	declared := filepath.Join(dir, "C-abc123.mp4")
	if err := os.WriteFile(declared, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("declared file exists", func(t *testing.T) {
		got, err := verifyOrRecover(declared, "C-abc123", dir)
		if err != nil {
			t.Fatalf("verifyOrRecover() error: %v", err)
		}
		if got != declared {
			t.Errorf("got %q, want %q", got, declared)
		}
	})

	t.Run("declared missing, recovered by item id", func(t *testing.T) {
		got, err := verifyOrRecover(filepath.Join(dir, "renamed-away.mp4"), "C-abc123", dir)
		if err != nil {
			t.Fatalf("verifyOrRecover() error: %v", err)
		}
		if got != declared {
			t.Errorf("got %q, want %q", got, declared)
		}
	})

	t.Run("empty file does not count", func(t *testing.T) {
		empty := filepath.Join(dir, "hollow-id.mp4")
		if err := os.WriteFile(empty, nil, 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := verifyOrRecover(empty, "hollow-id", dir)
		if !errors.Is(err, errs.ErrFileMissing) {
			t.Errorf("error = %v, want ErrFileMissing", err)
		}
	})

	t.Run("nothing to recover", func(t *testing.T) {
		_, err := verifyOrRecover("", "absent-id", dir)
		if !errors.Is(err, errs.ErrFileMissing) {
			t.Errorf("error = %v, want ErrFileMissing", err)
		}
	})
}

func TestIsDirectMediaURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://cdn.example.com/clip.mp4", want: true},
		{url: "https://cdn.example.com/clip.MOV", want: true},
		{url: "https://cdn.example.com/clip.mp4?token=abc", want: true},
		{url: "https://www.instagram.com/reel/C-abc123/", want: false},
		{url: "https://example.com/page.html", want: false},
		{url: "not a url at all", want: false},
	}

	for _, tc := range tests {
		if got := isDirectMediaURL(tc.url); got != tc.want {
			t.Errorf("isDirectMediaURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
