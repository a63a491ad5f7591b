// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package users manages user accounts. Reads are memoised through the
// response cache and every mutation invalidates the affected entries.
package users

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/united-manufacturing-hub/service-scaffold/internal/cache"
	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
)

const (
	cacheScope = "users"
	opFindAll  = "findAll"
	opFindByID = "findById"
)

// CreateInput is the payload of a new user.
type CreateInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// Service is the user use-case layer.
type Service struct {
	repo  repository.Repository
	cache *cache.Cache
	log   *zap.SugaredLogger

	findAll  cache.Func[[]models.User]
	findByID cache.Func[*models.User]
}

// NewService wires the repository behind the cache. c may be nil.
func NewService(repo repository.Repository, c *cache.Cache) *Service {
	s := &Service{
		repo:  repo,
		cache: c,
		log:   logger.For(logger.ComponentUsers),
	}
	s.findAll = cache.Wrap(c, cache.Options{Scope: cacheScope, Operation: opFindAll},
		func(ctx context.Context, _ cache.Args) ([]models.User, error) {
			recs, err := s.repo.FindAll(ctx)
			if err != nil {
				return nil, err
			}
			return models.UsersFromRecords(recs), nil
		})
	s.findByID = cache.Wrap(c, cache.Options{Scope: cacheScope, Operation: opFindByID},
		func(ctx context.Context, args cache.Args) (*models.User, error) {
			id, _ := args.Positional[0].(string)
			rec, err := s.repo.FindByID(ctx, id)
			if err != nil || rec == nil {
				return nil, err
			}
			user := models.UserFromRecord(*rec)
			return &user, nil
		})
	return s
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, in CreateInput) (models.User, error) {
	fields := repository.Fields{
		models.FieldName:  strings.TrimSpace(in.Name),
		models.FieldEmail: NormalizeEmail(in.Email),
	}
	if in.Password != "" {
		fields[models.FieldPassword] = in.Password
	}
	rec, err := s.repo.Create(ctx, fields)
	if err != nil {
		return models.User{}, err
	}
	s.invalidate(ctx, "")
	s.log.Debugw("User created", "id", rec.ID)
	return models.UserFromRecord(rec), nil
}

// FindAll lists every user. The slice is never nil.
func (s *Service) FindAll(ctx context.Context) ([]models.User, error) {
	users, err := s.findAll(ctx, cache.Args{})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// FindOne returns nil when no user has id.
func (s *Service) FindOne(ctx context.Context, id string) (*models.User, error) {
	return s.findByID(ctx, byIDArgs(id))
}

// FindByEmail bypasses the cache so the password hash is available.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	rec, err := s.repo.FindByField(ctx, models.FieldEmail, NormalizeEmail(email))
	if err != nil || rec == nil {
		return nil, err
	}
	user := models.UserFromRecord(*rec)
	return &user, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (models.User, error) {
	fields := repository.Fields{}
	if in.Name != nil {
		fields[models.FieldName] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		fields[models.FieldEmail] = NormalizeEmail(*in.Email)
	}
	if in.Password != nil {
		fields[models.FieldPassword] = *in.Password
	}
	rec, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return models.User{}, err
	}
	s.invalidate(ctx, id)
	return models.UserFromRecord(rec), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// VerifyPassword reports whether candidate matches the stored hash. Users
// without a password never match.
func VerifyPassword(user models.User, candidate string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

func byIDArgs(id string) cache.Args {
	return cache.Args{Positional: []any{id}}
}

// invalidate drops the list entry and, when id is set, the entry of that
// user. Failures only leave entries to expire by TTL.
func (s *Service) invalidate(ctx context.Context, id string) {
	if err := cache.Invalidate(ctx, s.cache, cacheScope, opFindAll, cache.Args{}); err != nil {
		s.log.Warnw("Cannot invalidate cached user list", "error", err)
	}
	if id == "" {
		return
	}
	if err := cache.Invalidate(ctx, s.cache, cacheScope, opFindByID, byIDArgs(id)); err != nil {
		s.log.Warnw("Cannot invalidate cached user", "id", id, "error", err)
	}
}
