package models

// Comment is a reply attached to a Post.
// PostTitle is a denormalized copy kept for flattened exports.
type Comment struct {
	PostID    string `json:"post_id"`
	PostTitle string `json:"post_title,omitempty"`
	Platform  string `json:"platform"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Upvotes   int    `json:"upvotes"`
	CreatedAt string `json:"created_at"`
}
