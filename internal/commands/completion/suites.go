// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	maxSuiteFiles  = 100
	maxSearchDepth = 2
)

// suiteFile represents a discovered suite file with metadata.
type suiteFile struct {
	path    string
	modTime int64
}

// CompleteSuiteFiles provides completion for suite file paths: YAML files
// up to two directories deep that carry both "name" and "graph" keys,
// newest first.
func CompleteSuiteFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		files, err := discoverSuiteFiles(".", maxSearchDepth)
		if err != nil || len(files) == 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime > files[j].modTime
		})
		if len(files) > maxSuiteFiles {
			files = files[:maxSuiteFiles]
		}

		var paths []string
		for _, f := range files {
			if strings.HasPrefix(f.path, toComplete) {
				paths = append(paths, f.path)
			}
		}
		return paths, cobra.ShellCompDirectiveDefault
	})
}

// discoverSuiteFiles walks root up to maxDepth levels below it.
func discoverSuiteFiles(root string, maxDepth int) ([]suiteFile, error) {
	var files []suiteFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if strings.Count(relPath, string(filepath.Separator)) > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		if d.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}
		if !isRegularFile(path) || !isSuiteFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, suiteFile{path: path, modTime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isRegularFile rejects symlinks in the final path component.
func isRegularFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink == 0
}

// isSuiteFile reports whether path parses as YAML with top-level "name"
// and "graph" keys.
func isSuiteFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, hasName := doc["name"]
	_, hasGraph := doc["graph"]
	return hasName && hasGraph
}
