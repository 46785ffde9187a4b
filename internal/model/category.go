package model

// Category 分类
type Category struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"type:varchar(100);not null;index:idx_categories_name"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Slug        string  `json:"slug" gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_slug"`
}

func (Category) TableName() string { return "categories" }
