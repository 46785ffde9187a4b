package model

// PostCategory 文章-分类关联（多对多）
type PostCategory struct {
	ID         uint `gorm:"primaryKey"`
	PostID     uint `gorm:"not null;index:idx_pc_post;uniqueIndex:idx_pc_pair"`
	CategoryID uint `gorm:"not null;index:idx_pc_category;uniqueIndex:idx_pc_pair"`
	// 复合唯一键，避免重复关联
	// idx_pc_pair = (post_id, category_id)

	Post     *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (PostCategory) TableName() string { return "posts_categories" }
