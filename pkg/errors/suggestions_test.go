package errors_test

import (
	"strings"
	"testing"

	"github.com/joe/treewalk/pkg/errors"
)

func TestSuggestionGenerator_EveryCategoryHasAdvice(t *testing.T) {
	t.Parallel()

	generator := errors.NewSuggestionGenerator()

	for _, category := range []errors.ErrorCategory{
		errors.CategoryDelete,
		errors.CategoryDiskSpace,
		errors.CategoryEnumeration,
		errors.CategoryLoop,
		errors.CategoryPath,
		errors.CategoryPermission,
		errors.CategoryRemote,
		errors.CategoryUnknown,
		errors.ErrorCategory("made-up"),
	} {
		if len(generator.Generate(category, "")) == 0 {
			t.Errorf("no suggestions for %q", category)
		}
	}
}

func TestSuggestionGenerator_LoopAdvice(t *testing.T) {
	t.Parallel()

	suggestions := errors.NewSuggestionGenerator().Generate(errors.CategoryLoop, "/srv/up")
	joined := strings.Join(suggestions, "\n")

	if !strings.Contains(joined, "ls -l /srv/up") {
		t.Errorf("expected link inspection hint, got %q", joined)
	}

	if !strings.Contains(joined, "--follow-links") {
		t.Errorf("expected follow-links hint, got %q", joined)
	}
}

func TestSuggestionGenerator_PathIsOptional(t *testing.T) {
	t.Parallel()

	generator := errors.NewSuggestionGenerator()

	with := generator.Generate(errors.CategoryPermission, "/etc/shadow")
	without := generator.Generate(errors.CategoryPermission, "")

	if !strings.Contains(strings.Join(with, " "), "/etc/shadow") {
		t.Error("expected the path in suggestions")
	}

	if len(with) != len(without) {
		t.Errorf("expected the same number of suggestions, got %d and %d", len(with), len(without))
	}
}
