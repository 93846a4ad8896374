//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package scanengine_test

import (
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/pkg/filesystem"
)

func TestNewGlobFilter_RejectsBadPattern(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	filter, err := scanengine.NewGlobFilter("[invalid")
	g.Expect(err).Should(MatchError(doublestar.ErrBadPattern))
	g.Expect(filter).Should(BeNil())
}

func TestGlobFilterShouldInclude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		pattern     string
		path        string
		shouldMatch bool
	}{
		{"empty pattern matches all", "", "any/file.txt", true},
		{"simple extension match", "*.mov", "video.mov", true},
		{"simple extension no match", "*.mov", "video.mp4", false},
		{"uppercase pattern", "*.MOV", "video.mov", true},
		{"uppercase file", "*.mov", "VIDEO.MOV", true},
		{"star stays in one segment", "*.mov", "dir/video.mov", false},
		{"doublestar crosses segments", "**/*.mov", "a/b/video.mov", true},
		{"doublestar matches top level", "**/*.mov", "video.mov", true},
		{"alternation", "*.{jpg,png}", "photo.PNG", true},
		{"prefix directory", "logs/**", "logs/2024/app.log", true},
		{"prefix directory no match", "logs/**", "data/app.log", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			filter, err := scanengine.NewGlobFilter(tt.pattern)
			g.Expect(err).ShouldNot(HaveOccurred())
			g.Expect(filter.ShouldInclude(tt.path)).Should(Equal(tt.shouldMatch))
		})
	}
}

func TestRelativePath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(scanengine.RelativePath("/root", "/root")).Should(Equal("."))
	g.Expect(scanengine.RelativePath("/root", "/root/a/b.txt")).Should(Equal("a/b.txt"))
	g.Expect(scanengine.RelativePath(`C:\data`, `C:\data\x\y.txt`)).Should(Equal("x/y.txt"))
}

func TestMatcher_DirectoriesAlwaysMatch(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/root/docs/readme.md", []byte("x"), time.Now())
	mfs.AddFile("/root/main.go", []byte("x"), time.Now())

	filter, err := scanengine.NewGlobFilter("**/*.go")
	g.Expect(err).ShouldNot(HaveOccurred())

	match := scanengine.Matcher(filter, "/root")

	dirInfo, err := mfs.Stat("/root/docs")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(match("/root/docs", dirInfo)).Should(BeTrue())

	mdInfo, err := mfs.Stat("/root/docs/readme.md")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(match("/root/docs/readme.md", mdInfo)).Should(BeFalse())

	goInfo, err := mfs.Stat("/root/main.go")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(match("/root/main.go", goInfo)).Should(BeTrue())

	g.Expect(scanengine.Matcher(nil, "/root")("/root/docs/readme.md", mdInfo)).Should(BeTrue())
}
