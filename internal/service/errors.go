package service

import "errors"

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidStatus    = errors.New("status must be DRAFT or PUBLISHED")
)
