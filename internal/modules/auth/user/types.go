package user

import (
	"errors"
	"time"
)

// CreateMemberDTO describes a new member account.
type CreateMemberDTO struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Name     string `json:"name"     binding:"max=64"`
	Mail     string `json:"mail"     binding:"omitempty,email"`
	URL      string `json:"url"      binding:"omitempty,url,max=128"`
	IsAdmin  bool   `json:"is_admin"`
}

type UpdateMemberDTO struct {
	Name *string `json:"name" binding:"omitempty,max=64"`
	Mail *string `json:"mail" binding:"omitempty,email"`
	URL  *string `json:"url"  binding:"omitempty,url,max=128"`
}

type memberResponse struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Mail     string    `json:"mail"`
	URL      string    `json:"url"`
	IsAdmin  bool      `json:"is_admin"`
	Created  time.Time `json:"created"`
}

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrUsernameTaken  = errors.New("username already taken")
)
