package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "User"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type Achievement struct {
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earnedAt"`
}

// User is the stored record. It never leaves the service layer as-is; use
// Public for anything rendered to a client.
type User struct {
	ID           ID     `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	// Password holds a plaintext credential written by older deployments.
	// It is cleared as soon as the owner logs in successfully.
	Password     string        `json:"password,omitempty"`
	Nickname     string        `json:"nickname"`
	Role         Role          `json:"role"`
	JoinedDate   time.Time     `json:"joinedDate"`
	Avatar       *string       `json:"avatar"`
	About        *string       `json:"about"`
	Achievements []Achievement `json:"achievements"`
}

func (u *User) DisplayName() string {
	if strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	return u.Username
}

func (u *User) HasAchievement(name string) bool {
	for _, a := range u.Achievements {
		if a.Name == name {
			return true
		}
	}
	return false
}

// PublicUser is the credential-free projection of User.
type PublicUser struct {
	ID           ID            `json:"id"`
	Email        string        `json:"email,omitempty"`
	Username     string        `json:"username"`
	Nickname     string        `json:"nickname"`
	Role         Role          `json:"role"`
	JoinedDate   time.Time     `json:"joinedDate"`
	Avatar       *string       `json:"avatar"`
	About        *string       `json:"about"`
	Achievements []Achievement `json:"achievements"`
}

// Profile is Public without the email, for pages anyone can read.
func (u *User) Profile() PublicUser {
	p := u.Public()
	p.Email = ""
	return p
}

func (u *User) Public() PublicUser {
	achievements := make([]Achievement, len(u.Achievements))
	copy(achievements, u.Achievements)
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		Nickname:     u.DisplayName(),
		Role:         u.roleOrDefault(),
		JoinedDate:   u.JoinedDate,
		Avatar:       u.Avatar,
		About:        u.About,
		Achievements: achievements,
	}
}

func (u *User) roleOrDefault() Role {
	if u.Role.Valid() {
		return u.Role
	}
	return RoleUser
}

// AuthorSummary is the compact author block attached to topics and posts.
type AuthorSummary struct {
	ID       ID      `json:"id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Role     Role    `json:"role"`
}

const missingAuthorName = "Deleted user"

func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Nickname: u.DisplayName(), Avatar: u.Avatar, Role: u.roleOrDefault()}
}

// PlaceholderAuthor stands in for an author whose record no longer resolves.
func PlaceholderAuthor(id ID) AuthorSummary {
	return AuthorSummary{ID: id, Nickname: missingAuthorName, Role: RoleUser}
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID ID
	Role   Role
}

func (i *Identity) IsAdmin() bool { return i != nil && i.Role == RoleAdmin }

func (i *Identity) IsModerator() bool {
	return i != nil && (i.Role == RoleModerator || i.Role == RoleAdmin)
}

// CanModify is the ownership gate: the author or any moderator/admin.
func (i *Identity) CanModify(authorID ID) bool {
	if i == nil {
		return false
	}
	return i.UserID == authorID || i.IsModerator()
}
