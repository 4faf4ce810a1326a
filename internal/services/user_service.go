package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/baharkarakas/simsforum/internal/auth"
	"github.com/baharkarakas/simsforum/internal/idgen"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
	"github.com/baharkarakas/simsforum/internal/worker"
)

type UserService struct {
	store  *store.Store
	tokens *auth.TokenManager
	pool   *worker.Pool
	ids    *idgen.Generator
	log    *slog.Logger
	now    func() time.Time
}

func NewUserService(st *store.Store, tokens *auth.TokenManager, pool *worker.Pool, ids *idgen.Generator, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{store: st, tokens: tokens, pool: pool, ids: ids, log: log, now: time.Now}
}

// Session is what register and login hand back to the client.
type Session struct {
	User      models.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type ProfileUpdate struct {
	Nickname *string
	About    *string
	Avatar   *string
}

func (s *UserService) hash(ctx context.Context, password string) (string, error) {
	var hash string
	err := s.pool.Do(ctx, func() error {
		var err error
		hash, err = auth.HashPassword(password)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *UserService) session(u *models.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: u.Public(), Token: token, ExpiresAt: exp}, nil
}

func taken(users []models.User, email, username string) bool {
	for _, u := range users {
		if strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

func (s *UserService) Register(ctx context.Context, email, username, password string) (*Session, error) {
	email, okEmail := nonEmpty(email)
	username, okName := nonEmpty(username)
	if !okEmail || !okName || password == "" {
		return nil, models.Validation("email, username and password are required")
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, models.Validation("%s", err.Error())
	}

	// Cheap early rejection so a duplicate signup does not pay for bcrypt.
	var exists bool
	err := s.store.View(ctx, store.Reading(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		exists = taken(users, email, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.Conflict("an account with this email or username already exists")
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}

	var created models.User
	err = s.store.Update(ctx, store.Writing(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		if taken(users, email, username) {
			return models.Conflict("an account with this email or username already exists")
		}
		created = models.User{
			ID:           s.ids.Next(),
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			Nickname:     username,
			Role:         models.RoleUser,
			JoinedDate:   s.now().UTC(),
			Achievements: []models.Achievement{},
		}
		return store.Save(tx, store.Users, append(users, created))
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", created.ID, "username", created.Username)
	return s.session(&created)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email, ok := nonEmpty(email)
	if !ok || password == "" {
		return nil, models.Validation("email and password are required")
	}

	var u models.User
	found := false
	err := s.store.View(ctx, store.Reading(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		for i := range users {
			if strings.EqualFold(users[i].Email, email) {
				u, found = users[i], true
				break
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrInvalidCredentials
	}

	if auth.IsHashed(u.PasswordHash) {
		err := s.pool.Do(ctx, func() error { return auth.VerifyPassword(password, u.PasswordHash) })
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			return nil, models.ErrInvalidCredentials
		case err != nil:
			return nil, fmt.Errorf("verify password: %w", err)
		}
		return s.session(&u)
	}

	legacy := u.PasswordHash
	if legacy == "" {
		legacy = u.Password
	}
	if legacy == "" || !auth.MatchLegacy(password, legacy) {
		return nil, models.ErrInvalidCredentials
	}
	if err := s.upgradeLegacy(ctx, u.ID, password); err != nil {
		// The credential matched; failing the upgrade must not lock the user out.
		s.log.Error("upgrade legacy password", "user_id", u.ID, "err", err)
	}
	return s.session(&u)
}

func (s *UserService) upgradeLegacy(ctx context.Context, id models.ID, password string) error {
	hash, err := s.hash(ctx, password)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, store.Writing(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		i := findUser(users, id)
		if i < 0 || auth.IsHashed(users[i].PasswordHash) {
			return nil
		}
		users[i].PasswordHash = hash
		users[i].Password = ""
		s.log.Info("upgraded legacy password", "user_id", id)
		return store.Save(tx, store.Users, users)
	})
}

// Verify resolves a bearer token to the user it was issued for.
func (s *UserService) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, models.Unauthorized("invalid or expired token")
	}
	u, err := s.Get(ctx, claims.UserID)
	if models.IsKind(err, models.KindNotFound) {
		return nil, models.Unauthorized("invalid or expired token")
	}
	return u, err
}

func (s *UserService) Get(ctx context.Context, id models.ID) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, store.Reading(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if i := findUser(users, id); i >= 0 {
			u = &users[i]
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.NotFound("user not found")
	}
	return u, nil
}

const (
	maxNickname = 40
	maxAbout    = 500
	maxAvatar   = 500
)

func tooLong(s *string, max int) bool { return s != nil && len([]rune(*s)) > max }

func (s *UserService) UpdateProfile(ctx context.Context, id models.ID, p ProfileUpdate) (models.PublicUser, error) {
	if p.Nickname != nil {
		nick, ok := nonEmpty(*p.Nickname)
		if !ok {
			return models.PublicUser{}, models.Validation("nickname cannot be empty")
		}
		p.Nickname = &nick
	}
	if tooLong(p.Nickname, maxNickname) || tooLong(p.About, maxAbout) || tooLong(p.Avatar, maxAvatar) {
		return models.PublicUser{}, models.Validation("nickname is limited to %d characters, about and avatar to %d", maxNickname, maxAbout)
	}
	var out models.PublicUser
	err := s.store.Update(ctx, store.Writing(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		i := findUser(users, id)
		if i < 0 {
			return models.NotFound("user not found")
		}
		u := &users[i]
		if p.Nickname != nil {
			u.Nickname = *p.Nickname
		}
		if p.About != nil {
			u.About = optional(*p.About)
		}
		if p.Avatar != nil {
			u.Avatar = optional(*p.Avatar)
		}
		out = u.Public()
		return store.Save(tx, store.Users, users)
	})
	return out, err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *UserService) SetRole(ctx context.Context, id models.ID, role models.Role) (models.PublicUser, error) {
	if !role.Valid() {
		return models.PublicUser{}, models.Validation("unknown role %q", role)
	}
	var out models.PublicUser
	err := s.store.Update(ctx, store.Writing(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		i := findUser(users, id)
		if i < 0 {
			return models.NotFound("user not found")
		}
		users[i].Role = role
		out = users[i].Public()
		return store.Save(tx, store.Users, users)
	})
	if err == nil {
		s.log.Info("role changed", "user_id", id, "role", role)
	}
	return out, err
}

// List returns every user, newest first.
func (s *UserService) List(ctx context.Context) ([]models.PublicUser, error) {
	var out []models.PublicUser
	err := s.store.View(ctx, store.Reading(store.Users), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		sort.SliceStable(users, func(i, j int) bool { return users[i].JoinedDate.After(users[j].JoinedDate) })
		out = make([]models.PublicUser, 0, len(users))
		for i := range users {
			out = append(out, users[i].Public())
		}
		return err
	})
	return out, err
}
