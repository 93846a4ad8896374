//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/treewalk/internal/config"
)

// sampleRoot builds root/a.txt, root/b.go and root/sub/c.go.
func sampleRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range map[string]string{
		"a.txt":    "alpha",
		"b.go":     "package b",
		"sub/c.go": "package c",
	} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	return root
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()

	cfg, err := config.Parse(args)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}

	var out, errOut bytes.Buffer

	code = newApp(cfg, &out, &errOut).run(context.Background())

	return code, out.String(), errOut.String()
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRun_PathsMode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)

	code, stdout, stderr := runCLI(t, root)
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(stderr).Should(BeEmpty())
	g.Expect(lines(stdout)).Should(ConsistOf([]string{
		root,
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.go"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "c.go"),
	}))
}

func TestRun_PathsModeWithMatchAndDepth(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)

	code, stdout, _ := runCLI(t, "--match", "**/*.go", root)
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(lines(stdout)).Should(ConsistOf([]string{
		root,
		filepath.Join(root, "b.go"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "c.go"),
	}))

	_, stdout, _ = runCLI(t, "--max-depth", "0", root)
	g.Expect(lines(stdout)).Should(Equal([]string{root}))
}

func TestRun_EventsMode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)

	code, stdout, _ := runCLI(t, "--mode", "events", root)
	g.Expect(code).Should(Equal(exitOK))

	got := lines(stdout)
	g.Expect(got[0]).Should(Equal("start-directory 0 " + root))
	g.Expect(got[len(got)-1]).Should(Equal("end-directory   0 " + root))
	g.Expect(got).Should(ConsistOf([]string{
		"start-directory 0 " + root,
		"entry           1 " + filepath.Join(root, "a.txt"),
		"entry           1 " + filepath.Join(root, "b.go"),
		"start-directory 1 " + filepath.Join(root, "sub"),
		"entry           2 " + filepath.Join(root, "sub", "c.go"),
		"end-directory   1 " + filepath.Join(root, "sub"),
		"end-directory   0 " + root,
	}))
}

func TestRun_TreeMode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)
	g.Expect(os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link"))).Should(Succeed())

	code, stdout, _ := runCLI(t, "--mode", "tree", root)
	g.Expect(code).Should(Equal(exitOK))

	got := lines(stdout)
	g.Expect(got[0]).Should(Equal(root))
	g.Expect(got).Should(ConsistOf([]string{
		root,
		"  a.txt",
		"  b.go",
		"  link@",
		"  sub/",
		"    c.go",
	}))
}

func TestRun_UsageMode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	first, second := sampleRoot(t), sampleRoot(t)

	code, stdout, _ := runCLI(t, "--mode", "usage", first, second)
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(stdout).Should(ContainSubstring("FILES"))
	g.Expect(stdout).Should(ContainSubstring(first))
	g.Expect(stdout).Should(ContainSubstring(second))
	g.Expect(stdout).Should(ContainSubstring("total"))
	g.Expect(stdout).Should(ContainSubstring("run "))
}

func TestRun_InteractiveWithoutTerminalFallsBackToUsage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	code, stdout, stderr := runCLI(t, "--interactive", sampleRoot(t))
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(stdout).Should(ContainSubstring("FILES"))
	g.Expect(stderr).Should(ContainSubstring("not a terminal"))
}

func TestRun_MissingRootIsReported(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	missing := filepath.Join(t.TempDir(), "gone")

	code, stdout, stderr := runCLI(t, missing)
	g.Expect(code).Should(Equal(exitFailures))
	g.Expect(stdout).Should(BeEmpty())
	g.Expect(stderr).Should(ContainSubstring("Error:"))
	g.Expect(stderr).Should(ContainSubstring(missing))
}

func TestRun_CopyTo(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)
	dest := filepath.Join(t.TempDir(), "copy")

	code, stdout, _ := runCLI(t, "--copy-to", dest, "--verify", root)
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(stdout).Should(ContainSubstring("copied 3 files"))

	content, err := os.ReadFile(filepath.Join(dest, "sub", "c.go"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(content)).Should(Equal("package c"))
}

func TestRun_CopyIntoSourceIsRefused(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)
	dest := filepath.Join(root, "sub", "copy")

	code, _, stderr := runCLI(t, "--copy-to", dest, root)
	g.Expect(code).Should(Equal(exitFatal))
	g.Expect(stderr).Should(ContainSubstring("destination is inside the source tree"))

	_, err := os.Stat(dest)
	g.Expect(os.IsNotExist(err)).Should(BeTrue())
}

func TestRun_CopyToMemoryCanBeWalkedAgain(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	code, _, _ := runCLI(t, "--copy-to", "mem:///cli-copy", sampleRoot(t))
	g.Expect(code).Should(Equal(exitOK))

	code, stdout, _ := runCLI(t, "mem:///cli-copy")
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(lines(stdout)).Should(ConsistOf(
		"/cli-copy", "/cli-copy/a.txt", "/cli-copy/b.go", "/cli-copy/sub", "/cli-copy/sub/c.go",
	))
}

func TestRun_Remove(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := sampleRoot(t)

	code, stdout, _ := runCLI(t, "--remove", root)
	g.Expect(code).Should(Equal(exitOK))
	g.Expect(stdout).Should(ContainSubstring("removed 3 files and 2 directories"))

	_, err := os.Stat(root)
	g.Expect(os.IsNotExist(err)).Should(BeTrue())
}

func TestBaseName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(baseName("/a/b/c.txt")).Should(Equal("c.txt"))
	g.Expect(baseName(`C:\data\x`)).Should(Equal("x"))
	g.Expect(baseName("/a/dir/")).Should(Equal("dir"))
	g.Expect(baseName("/")).Should(Equal("/"))
}
