package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sweetpotato0/pinecone/errors"
)

func TestReadMultipleFiles(t *testing.T) {
	sb := newWorkspace(t)
	rd, err := NewRead(ReadConfig{Sandbox: sb})
	if err != nil {
		t.Fatalf("NewRead: %v", err)
	}

	out, err := rd.Execute(context.Background(), map[string]interface{}{
		"documents": []interface{}{"README.md", filepath.Join(sb.Root(), "docs", "notes.md")},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	readme := filepath.Join(sb.Root(), "README.md")
	notes := filepath.Join(sb.Root(), "docs", "notes.md")
	want := "<" + readme + ">readme</" + readme + ">\n<" + notes + ">hello notes</" + notes + ">"
	if out != want {
		t.Errorf("unexpected output:\n got %q\nwant %q", out, want)
	}
}

func TestReadMissingFileDegradesInline(t *testing.T) {
	sb := newWorkspace(t)
	rd, _ := NewRead(ReadConfig{Sandbox: sb})

	out, err := rd.Execute(context.Background(), map[string]interface{}{
		"documents": []interface{}{"missing.txt", "README.md"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "[error: missing.txt does not exist]") {
		t.Errorf("Expected inline error marker, got %q", out)
	}
	if !strings.Contains(out, ">readme<") {
		t.Errorf("Expected the readable file to be returned, got %q", out)
	}
}

func TestReadRejectsEscape(t *testing.T) {
	sb := newWorkspace(t)
	rd, _ := NewRead(ReadConfig{Sandbox: sb})

	out, err := rd.Execute(context.Background(), map[string]interface{}{
		"documents": []interface{}{"README.md", "../../etc/passwd"},
	})
	if !errors.Is(err, errors.ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
	if out != "" {
		t.Errorf("Expected no content on containment error, got %q", out)
	}
}

func TestReadTruncates(t *testing.T) {
	sb := newWorkspace(t)
	big := strings.Repeat("z", 500)
	if err := os.WriteFile(filepath.Join(sb.Root(), "big.txt"), []byte(big), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rd, _ := NewRead(ReadConfig{Sandbox: sb, MaxChars: 50})

	out, err := rd.Execute(context.Background(), map[string]interface{}{"documents": "big.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, strings.Repeat("z", 50)+"\n[truncated]") {
		t.Errorf("Expected truncated content, got %q", out)
	}
	if strings.Contains(out, strings.Repeat("z", 51)) {
		t.Error("content exceeds the character budget")
	}
}

func TestReadLargeFileStaysBounded(t *testing.T) {
	sb := newWorkspace(t)
	big := strings.Repeat("é", 1<<20)
	if err := os.WriteFile(filepath.Join(sb.Root(), "huge.txt"), []byte(big), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rd, _ := NewRead(ReadConfig{Sandbox: sb, MaxChars: 10})

	out, err := rd.Execute(context.Background(), map[string]interface{}{"documents": "huge.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, strings.Repeat("é", 10)+"\n[truncated]") {
		t.Errorf("Expected ten runes then the marker, got %q", out)
	}
	if len(out) > 200 {
		t.Errorf("Expected bounded output, got %d bytes", len(out))
	}
}

func TestReadDirectoryAndEmptyArgs(t *testing.T) {
	sb := newWorkspace(t)
	rd, _ := NewRead(ReadConfig{Sandbox: sb})

	out, err := rd.Execute(context.Background(), map[string]interface{}{"paths": []interface{}{"docs"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "[error: docs is a directory]") {
		t.Errorf("Expected directory marker, got %q", out)
	}

	if _, err := rd.Execute(context.Background(), map[string]interface{}{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty documents, got %v", err)
	}
}
