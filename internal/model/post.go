package model

import "time"

// Post 文章
type Post struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"type:text;not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Excerpt     *string   `json:"excerpt,omitempty" gorm:"type:varchar(500)"`
	Slug        string    `json:"slug" gorm:"type:varchar(200);not null;uniqueIndex:idx_posts_slug"`
	IsPublished bool      `json:"is_published" gorm:"not null;default:false;index:idx_posts_published"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;index:idx_posts_created"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`

	// 关联分类由仓储层按需加载，不参与 gorm 关联写入
	Categories []Category `json:"categories,omitempty" gorm:"-"`
}

func (Post) TableName() string { return "posts" }

// 发布状态
const (
	PostStatusDraft     = "DRAFT"
	PostStatusPublished = "PUBLISHED"
)

// Status maps is_published back to the DRAFT/PUBLISHED vocabulary.
func (p *Post) Status() string {
	if p.IsPublished {
		return PostStatusPublished
	}
	return PostStatusDraft
}
