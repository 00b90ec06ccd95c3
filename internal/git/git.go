// Package git reads change information from a mod project's repository so
// translation runs can be limited to the sources that actually changed.
package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ChangedFile is one touched path with the line numbers of its new version.
type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// ChangedFiles diffs the working tree against the base ref inside root.
// Paths come back relative to root.
func ChangedFiles(root, baseRef string) ([]ChangedFile, error) {
	if baseRef == "" {
		baseRef = "HEAD"
	}
	cmd := exec.Command("git", "-C", root, "diff", "-U0", "--relative", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	return parseDiff(output)
}

// ChangedJavaSources narrows the diff to Java sources that still exist on
// disk, with paths joined onto root.
func ChangedJavaSources(root, baseRef string) ([]ChangedFile, error) {
	changes, err := ChangedFiles(root, baseRef)
	if err != nil {
		return nil, err
	}

	var sources []ChangedFile
	for _, change := range changes {
		if !strings.HasSuffix(change.Path, ".java") {
			continue
		}
		abs := filepath.Join(root, filepath.FromSlash(change.Path))
		if _, err := os.Stat(abs); err != nil {
			// Deleted sources have nothing left to translate.
			continue
		}
		change.Path = abs
		sources = append(sources, change)
	}
	return sources, nil
}

// chunkHeader matches @@ -oldStart,oldLen +newStart,newLen @@; only the
// new side matters here.
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile
	var current *ChangedFile

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				if current != nil {
					changes = append(changes, *current)
				}
				// a/old b/new; the b side names the new version.
				path := strings.TrimPrefix(parts[3], "b/")
				current = &ChangedFile{Path: path}
			}
			continue
		}

		if current == nil || !strings.HasPrefix(line, "@@") {
			continue
		}

		matches := chunkHeader.FindStringSubmatch(line)
		if len(matches) < 2 {
			continue
		}
		start, _ := strconv.Atoi(matches[1])
		count := 1
		if len(matches) > 2 && matches[2] != "" {
			count, _ = strconv.Atoi(matches[2])
		}
		// A zero count is a pure deletion at this position.
		for i := 0; i < count; i++ {
			current.ChangedLines = append(current.ChangedLines, start+i)
		}
	}

	if current != nil {
		changes = append(changes, *current)
	}

	return changes, scanner.Err()
}
