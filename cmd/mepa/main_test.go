package main

import (
	"os"
	"path/filepath"
	"testing"

	mepaerrors "mepa/internal/errors"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitCompile}, // a nil error never reaches exitCodeFor in main, but it shouldn't panic
		{mepaerrors.NewSyntactic(1, "bad token"), exitCompile},
		{mepaerrors.NewSemantic(1, "undeclared"), exitCompile},
		{mepaerrors.NewIO("no such file"), exitIO},
		{mepaerrors.NewRuntime("division by zero"), exitRuntime},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestSourceFilesExpandsDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mepa", "b.mepa", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("fn main(){ return 0; }"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	files, err := sourceFiles(dir)
	if err != nil {
		t.Fatalf("sourceFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("sourceFiles returned %d files, want 2 (.mepa only): %v", len(files), files)
	}
}

func TestSourceFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "only.mepa")
	if err := os.WriteFile(path, []byte("fn main(){ return 0; }"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	files, err := sourceFiles(path)
	if err != nil {
		t.Fatalf("sourceFiles: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Fatalf("sourceFiles = %v, want [%s]", files, path)
	}
}

func TestParseIntsRejectsNonInteger(t *testing.T) {
	if _, err := parseInts([]string{"1", "two", "3"}); err == nil {
		t.Error("parseInts should fail on a non-integer argument")
	}
}

func TestParseIntsOK(t *testing.T) {
	got, err := parseInts([]string{"1", "-2", "3"})
	if err != nil {
		t.Fatalf("parseInts: %v", err)
	}
	want := []int32{1, -2, 3}
	if len(got) != len(want) {
		t.Fatalf("parseInts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parseInts = %v, want %v", got, want)
		}
	}
}
