package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forum-corpus-pipeline/internal/models"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	rawExtensions = map[string]bool{".json": true, ".jsonl": true, ".ndjson": true}

	// Keys some exports use to wrap the post list
	wrapperKeys = []string{"posts", "data", "items", "results"}
)

// rawRepo reads raw scrape files from a directory
type rawRepo struct{}

// NewRawRepo creates a new raw file repository
func NewRawRepo() RawRepository {
	return &rawRepo{}
}

// LoadDir reads every raw file in dir in lexical order. Files are read in
// full before anything is decoded. A missing or unreadable directory is an
// *models.IOError; undecodable files and lines become decode_error issues.
func (r *rawRepo) LoadDir(ctx context.Context, dir string) (*RawBatch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &models.IOError{Op: "read dir", Path: dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !rawExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		// collector failure reports live next to the raw files
		if strings.Contains(e.Name(), FailuresMarker) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	batch := &RawBatch{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &models.IOError{Op: "read", Path: path, Err: err}
		}
		batch.Files++

		hint := PlatformHint(name)
		docs, issues := decodeRaw(data)
		for i := range issues {
			issues[i].Source = name
		}
		batch.Issues = append(batch.Issues, issues...)

		for _, d := range docs {
			batch.Records = append(batch.Records, RawRecord{
				Source:       name,
				Record:       d.index,
				PlatformHint: hint,
				Post:         d.post,
			})
		}
	}

	return batch, nil
}

// WriteFile stores v as indented JSON under dir/name and returns the path.
// Used by collectors to drop fresh raw files.
func (r *rawRepo) WriteFile(ctx context.Context, dir, name string, v interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	path := filepath.Join(dir, name)
	if err := writeJSONAtomic(path, v); err != nil {
		return "", err
	}
	return path, nil
}

// PlatformHint derives a platform tag from a raw file name:
// "zhihu_raw.json" and "v2ex-2024.jsonl" give "zhihu" and "v2ex".
func PlatformHint(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if i := strings.IndexAny(base, "_-."); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}

type rawDoc struct {
	index int
	post  models.RawPost
}

// decodeRaw accepts a JSON array of posts, an object wrapping such an
// array, a single post object, or JSON-Lines.
func decodeRaw(data []byte) ([]rawDoc, []models.Issue) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, []models.Issue{{Kind: models.IssueDecodeError, Message: "file is empty"}}
	}

	var values []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, []models.Issue{decodeIssue(0, err)}
		}
		return decodeElements(values)
	}

	values, err := decodeStream(trimmed)
	if err != nil {
		return decodeLines(data)
	}
	if len(values) == 1 {
		if wrapped, ok := unwrap(values[0]); ok {
			return decodeElements(wrapped)
		}
	}
	return decodeElements(values)
}

// decodeStream reads consecutive JSON values, which covers both a single
// object and well-formed JSON-Lines
func decodeStream(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var values []json.RawMessage
	for {
		var v json.RawMessage
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}

// decodeLines is the fallback for JSON-Lines with broken lines: each line
// stands alone so one bad line does not lose the rest
func decodeLines(data []byte) ([]rawDoc, []models.Issue) {
	var docs []rawDoc
	var issues []models.Issue
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(bytes.TrimSuffix(line, []byte("\r")))
		if len(line) == 0 {
			continue
		}
		var post models.RawPost
		if err := json.Unmarshal(line, &post); err != nil {
			issues = append(issues, decodeIssue(i+1, err))
			continue
		}
		docs = append(docs, rawDoc{index: i + 1, post: post})
	}
	return docs, issues
}

func decodeElements(values []json.RawMessage) ([]rawDoc, []models.Issue) {
	docs := make([]rawDoc, 0, len(values))
	var issues []models.Issue
	for i, v := range values {
		var post models.RawPost
		if err := json.Unmarshal(v, &post); err != nil {
			issues = append(issues, decodeIssue(i+1, err))
			continue
		}
		docs = append(docs, rawDoc{index: i + 1, post: post})
	}
	return docs, issues
}

func unwrap(v json.RawMessage) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err != nil {
		return nil, false
	}
	for _, key := range wrapperKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(inner, &list); err == nil {
			return list, true
		}
	}
	return nil, false
}

func decodeIssue(record int, err error) models.Issue {
	return models.Issue{
		Kind:    models.IssueDecodeError,
		Record:  record,
		Message: fmt.Sprintf("invalid JSON: %v", err),
	}
}
