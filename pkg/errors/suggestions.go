package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryDelete:
		return g.generateDeleteSuggestions(affectedPath)
	case CategoryLoop:
		return g.generateLoopSuggestions(affectedPath)
	case CategoryEnumeration:
		return g.generateEnumerationSuggestions(affectedPath)
	case CategoryRemote:
		return g.generateRemoteSuggestions()
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateDeleteSuggestions(path string) []string {
	suggestions := []string{
		"Check if files or subdirectories were added while the tree was being removed",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("List contents with 'ls -la %s'", path))
	}

	return append(suggestions, "Run the removal again once nothing is writing into the tree")
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the destination device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateEnumerationSuggestions(path string) []string {
	suggestions := []string{
		"The directory listing stopped part way; entries after the failure were not visited",
		"Run the walk again - the directory may have been changing or the device may have hiccuped",
	}

	if path != "" {
		suggestions = append(suggestions, "Check that "+path+" is still readable and its device is healthy")
	}

	return suggestions
}

func (g *suggestionGenerator) generateLoopSuggestions(path string) []string {
	suggestions := []string{
		"A symbolic link points back at one of its own ancestor directories",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Inspect the link with 'ls -l %s'", path))
	}

	return append(suggestions, "Walk without --follow-links to report links instead of entering them")
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
	}

	return append(suggestions, "The entry may have been removed while the walk was running")
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read and execute permission on every directory in the tree",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -ld %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -ld' on the affected path")
	}

	return append(suggestions, "Try running with appropriate permissions or as a privileged user")
}

func (g *suggestionGenerator) generateRemoteSuggestions() []string {
	return []string{
		"Check that the remote host is reachable and the service is running",
		"Verify your SSH agent or keys in ~/.ssh, or your S3 credentials in the environment",
		"Try the walk again - remote connections can drop transiently",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Verify file and directory permissions",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
