package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/forum-corpus-pipeline/internal/models"
)

// ErrNoOutput is returned when the processed directory holds no output yet
var ErrNoOutput = errors.New("no processed output")

// outputRepo is the file-backed implementation of OutputRepository
type outputRepo struct{}

// NewOutputRepo creates a new output repository
func NewOutputRepo() OutputRepository {
	return &outputRepo{}
}

// Save writes every collection into dir. Each file is written to a
// temporary name and renamed, so readers never observe a partial file.
// All files are attempted; failures are aggregated.
func (r *outputRepo) Save(ctx context.Context, dir string, out *models.Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	files := []struct {
		name string
		v    interface{}
	}{
		{PostsFile, nonNil(out.Posts)},
		{CommentsFile, nonNil(out.Comments)},
		{StatisticsFile, out.Statistics},
		{RejectedFile, nonNil(out.Rejected)},
		{IssuesFile, nonNil(out.Issues)},
	}

	var result *multierror.Error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSONAtomic(filepath.Join(dir, f.name), f.v); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Statistics reads data_statistics.json
func (r *outputRepo) Statistics(ctx context.Context, dir string) (*models.Statistics, error) {
	var s models.Statistics
	if err := readJSON(filepath.Join(dir, StatisticsFile), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StreamPosts streams merged posts for export
func (r *outputRepo) StreamPosts(ctx context.Context, dir string, callback func(*models.Post) error) error {
	return streamArray(ctx, filepath.Join(dir, PostsFile), func(dec *json.Decoder) error {
		var p models.Post
		if err := dec.Decode(&p); err != nil {
			return err
		}
		return callback(&p)
	})
}

// StreamComments streams flattened comments for export
func (r *outputRepo) StreamComments(ctx context.Context, dir string, callback func(*models.Comment) error) error {
	return streamArray(ctx, filepath.Join(dir, CommentsFile), func(dec *json.Decoder) error {
		var c models.Comment
		if err := dec.Decode(&c); err != nil {
			return err
		}
		return callback(&c)
	})
}

// StreamRejected streams rejected posts with their reasons
func (r *outputRepo) StreamRejected(ctx context.Context, dir string, callback func(*models.RejectedPost) error) error {
	return streamArray(ctx, filepath.Join(dir, RejectedFile), func(dec *json.Decoder) error {
		var rp models.RejectedPost
		if err := dec.Decode(&rp); err != nil {
			return err
		}
		return callback(&rp)
	})
}

// writeJSONAtomic encodes v as indented JSON, non-ASCII kept as-is
func writeJSONAtomic(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &models.IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return &models.IOError{Op: "encode", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &models.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoOutput, path)
	}
	if err != nil {
		return &models.IOError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// streamArray walks a top-level JSON array one element at a time
func streamArray(ctx context.Context, path string, decodeOne func(*json.Decoder) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoOutput, path)
	}
	if err != nil {
		return &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("%s: expected a JSON array", path)
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := decodeOne(dec); err != nil {
			return err
		}
	}
	return nil
}

// nonNil keeps empty collections rendered as [] rather than null
func nonNil(v interface{}) interface{} {
	switch s := v.(type) {
	case []models.Post:
		if s == nil {
			return []models.Post{}
		}
	case []models.Comment:
		if s == nil {
			return []models.Comment{}
		}
	case []models.RejectedPost:
		if s == nil {
			return []models.RejectedPost{}
		}
	case []models.Issue:
		if s == nil {
			return []models.Issue{}
		}
	}
	return v
}
