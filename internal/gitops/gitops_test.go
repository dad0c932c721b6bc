package gitops_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/signalnine/labgrader/internal/gitops"
)

func createTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmds := [][]string{
		{"git", "init"},
		{"git", "config", "user.email", "test@test.com"},
		{"git", "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		c := exec.Command(args[0], args[1:]...)
		c.Dir = dir
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
	os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\nname = \"rowlab\"\n"), 0o644)
	for _, args := range [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", "initial"},
		{"git", "tag", "v1"},
	} {
		c := exec.Command(args[0], args[1:]...)
		c.Dir = dir
		if out, err := c.CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
	return dir
}

func TestCloneAndCheckout(t *testing.T) {
	repo := createTestRepo(t)
	dest := filepath.Join(t.TempDir(), "sub")
	err := gitops.CloneAndCheckout("file://"+repo, "v1", dest)
	if err != nil {
		t.Fatalf("CloneAndCheckout: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dest, "Cargo.toml"))
	if err != nil {
		t.Fatalf("reading cloned file: %v", err)
	}
	if string(content) != "[package]\nname = \"rowlab\"\n" {
		t.Errorf("content: got %q", content)
	}
	commit, err := gitops.HeadCommit(dest)
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if len(commit) != 40 {
		t.Errorf("expected a full sha, got %q", commit)
	}
}

func TestCloneDefaultBranch(t *testing.T) {
	repo := createTestRepo(t)
	dest := filepath.Join(t.TempDir(), "sub")
	if err := gitops.CloneAndCheckout("file://"+repo, "", dest); err != nil {
		t.Fatalf("CloneAndCheckout: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "Cargo.toml")); err != nil {
		t.Errorf("expected Cargo.toml: %v", err)
	}
}

func TestCloneRejectsOptionLikeRepo(t *testing.T) {
	err := gitops.CloneAndCheckout("--upload-pack=evil", "v1", t.TempDir())
	if err == nil {
		t.Fatal("expected error for option-like repo")
	}
}

func TestCloneRejectsInvalidRef(t *testing.T) {
	for _, ref := range []string{"--option", " spaces", "../escape", "a:b"} {
		err := gitops.CloneAndCheckout("/tmp/repo", ref, t.TempDir())
		if err == nil {
			t.Errorf("expected error for ref %q", ref)
		}
	}
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	os.MkdirAll(filepath.Join(src, "src"), 0o755)
	os.MkdirAll(filepath.Join(src, ".git", "objects"), 0o755)
	os.WriteFile(filepath.Join(src, "src", "lib.rs"), []byte("pub fn mean() {}"), 0o644)
	os.WriteFile(filepath.Join(src, "run.sh"), []byte("#!/bin/sh\n"), 0o755)
	os.WriteFile(filepath.Join(src, ".git", "HEAD"), []byte("ref"), 0o644)
	os.Symlink("src/lib.rs", filepath.Join(src, "link.rs"))

	dest := filepath.Join(t.TempDir(), "staged")
	if err := gitops.CopyDir(src, dest); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dest, "src", "lib.rs"))
	if err != nil || string(content) != "pub fn mean() {}" {
		t.Errorf("lib.rs: got %q, %v", content, err)
	}
	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	if err != nil || info.Mode().Perm()&0o100 == 0 {
		t.Errorf("expected run.sh to stay executable: %v", err)
	}
	if link, err := os.Readlink(filepath.Join(dest, "link.rs")); err != nil || link != "src/lib.rs" {
		t.Errorf("symlink: got %q, %v", link, err)
	}
	if _, err := os.Stat(filepath.Join(dest, ".git")); !os.IsNotExist(err) {
		t.Errorf("expected .git to be skipped, got %v", err)
	}
}

func TestParseSource(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		in   string
		want gitops.Source
	}{
		{dir, gitops.Source{Dir: dir}},
		{"https://github.com/cmu/rowlab.git", gitops.Source{Repo: "https://github.com/cmu/rowlab.git"}},
		{"https://github.com/cmu/rowlab.git@v2", gitops.Source{Repo: "https://github.com/cmu/rowlab.git", Ref: "v2"}},
		{"git@github.com:cmu/rowlab.git", gitops.Source{Repo: "git@github.com:cmu/rowlab.git"}},
		{"git@github.com:cmu/rowlab.git@main", gitops.Source{Repo: "git@github.com:cmu/rowlab.git", Ref: "main"}},
		{"git@example.com:rowlab.git", gitops.Source{Repo: "git@example.com:rowlab.git"}},
		{"git@example.com:rowlab.git@v3", gitops.Source{Repo: "git@example.com:rowlab.git", Ref: "v3"}},
		{"ssh://git@example.com/rowlab.git", gitops.Source{Repo: "ssh://git@example.com/rowlab.git"}},
	}
	for _, tt := range tests {
		got, err := gitops.ParseSource(tt.in)
		if err != nil {
			t.Errorf("ParseSource(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSource(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "/no/such/dir/anywhere"} {
		if _, err := gitops.ParseSource(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		src  gitops.Source
		want string
	}{
		{gitops.Source{Dir: "/subs/alice smith/"}, "alice_smith"},
		{gitops.Source{Repo: "https://github.com/cmu/rowlab.git", Ref: "v2"}, "rowlab-v2"},
		{gitops.Source{Repo: "git@github.com:cmu/rowlab.git"}, "rowlab"},
	}
	for _, tt := range tests {
		if got := tt.src.Name(); got != tt.want {
			t.Errorf("Name(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
