package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const envRelicSchemaDir = "RELIC_SCHEMA_PATH"

// schemaSearchDirs collects the directories to probe for schema
// documents: the --dir flag (or config schema_dir) first, then
// $RELIC_SCHEMA_PATH.
func schemaSearchDirs(dirFlag string) []string {
	dirs := make([]string, 0, 2)
	if d := strings.TrimSpace(dirFlag); d != "" {
		dirs = append(dirs, d)
	}
	if d := strings.TrimSpace(os.Getenv(envRelicSchemaDir)); d != "" {
		dirs = append(dirs, d)
	}
	return dirs
}

// resolveSchemaDoc locates a schema document. An explicit --file path
// wins; a name that is itself a readable file is taken as given;
// otherwise name and name.json are probed against the search dirs.
func resolveSchemaDoc(fileFlag, name string, dirs []string) (string, error) {
	fileFlag = strings.TrimSpace(fileFlag)
	if fileFlag != "" {
		return filepath.Clean(fileFlag), nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("a schema document name or --file is required")
	}
	if st, err := os.Stat(name); err == nil && !st.IsDir() {
		return filepath.Clean(name), nil
	}

	for _, dir := range dirs {
		for _, cand := range []string{name, name + ".json"} {
			path := filepath.Join(dir, cand)
			if st, err := os.Stat(path); err == nil && !st.IsDir() {
				return path, nil
			}
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("schema document %q not found; set --dir or %s", name, envRelicSchemaDir)
	}
	return "", fmt.Errorf("schema document %q not found in %s", name, strings.Join(dirs, ", "))
}

// discoverSchemaDocs lists the .json documents directly under dir, sorted.
func discoverSchemaDocs(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("schema directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("schema path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		docs = append(docs, filepath.Join(dir, name))
	}
	sort.Strings(docs)
	return docs, nil
}
