package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/forum-corpus-pipeline/internal/models"
)

// FileAdapter loads a manually extracted record from a JSON file.
// Used for pages that were copied out of the browser by hand.
type FileAdapter struct {
	platform string
}

// NewFileAdapter creates a FileAdapter tagging records with platform
func NewFileAdapter(platform string) *FileAdapter {
	return &FileAdapter{platform: strings.ToLower(strings.TrimSpace(platform))}
}

func (a *FileAdapter) Platform() string { return a.platform }

// Fetch reads target as a single JSON post object
func (a *FileAdapter) Fetch(ctx context.Context, target string) (*models.RawPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure(a.platform, target, err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, failure(a.platform, target, err)
	}

	var post models.RawPost
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, failure(a.platform, target, err)
	}
	if strings.TrimSpace(post.Title) == "" {
		return nil, failure(a.platform, target, errors.New("record has no title"))
	}
	if post.Platform == "" {
		post.Platform = a.platform
	}
	return &post, nil
}
