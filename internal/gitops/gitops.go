// Package gitops stages submissions for batch grading: git checkouts at a ref
// or plain copies of a local directory.
package gitops

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Source is a submission location. Exactly one of Dir or Repo is set.
type Source struct {
	Dir  string
	Repo string
	Ref  string
}

// ParseSource interprets s as an existing directory, or else as a git URL
// with an optional `@ref` suffix.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return Source{}, fmt.Errorf("empty submission source")
	}
	if info, err := os.Stat(s); err == nil {
		if !info.IsDir() {
			return Source{}, fmt.Errorf("submission %s is not a directory", s)
		}
		return Source{Dir: s}, nil
	}
	if !looksLikeRepo(s) {
		return Source{}, fmt.Errorf("submission %s: no such directory and not a git URL", s)
	}
	repo, ref := s, ""
	// A ref follows the path; an earlier @ belongs to the user in scp-style URLs.
	if at := strings.LastIndex(s, "@"); at > strings.LastIndexAny(s, "/:") {
		repo, ref = s[:at], s[at+1:]
	}
	return Source{Repo: repo, Ref: ref}, nil
}

func looksLikeRepo(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "git@") || strings.HasSuffix(strings.SplitN(s, "@", 2)[0], ".git")
}

// Name is a filesystem-safe label for the submission.
func (s Source) Name() string {
	base := s.Dir
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(strings.ReplaceAll(s.Repo, ":", "/")), ".git")
		if s.Ref != "" {
			base += "-" + s.Ref
		}
	} else {
		abs, err := filepath.Abs(base)
		if err == nil {
			base = abs
		}
		base = filepath.Base(base)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, base)
}

// Stage materializes the submission at dest.
func Stage(src Source, dest string) error {
	if src.Dir != "" {
		return CopyDir(src.Dir, dest)
	}
	return CloneAndCheckout(src.Repo, src.Ref, dest)
}

func validateArg(kind, v string) error {
	if strings.HasPrefix(v, "-") {
		return fmt.Errorf("invalid %s %q: must not start with '-'", kind, v)
	}
	return nil
}

func validateRef(ref string) error {
	if err := validateArg("ref", ref); err != nil {
		return err
	}
	if strings.ContainsAny(ref, " \t\n~^:?*[\\") || strings.Contains(ref, "..") {
		return fmt.Errorf("invalid ref %q", ref)
	}
	return nil
}

// CloneAndCheckout makes a shallow clone of repo at ref. An empty ref clones
// the default branch.
func CloneAndCheckout(repo, ref, dest string) error {
	if repo == "" {
		return fmt.Errorf("empty repo")
	}
	if err := validateArg("repo", repo); err != nil {
		return err
	}
	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		if err := validateRef(ref); err != nil {
			return err
		}
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", repo, dest)
	cmd := exec.Command("git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %s: %w", out, err)
	}
	return nil
}

// HeadCommit returns the checked-out commit of a staged repo.
func HeadCommit(repoDir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CopyDir copies a submission tree into dest, preserving file modes and
// symlinks. The .git directory is skipped.
func CopyDir(src, dest string) error {
	src = filepath.Clean(src)
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() && d.Name() == ".git" && rel != "." {
			return filepath.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dest string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
