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

// Package auth registers and logs in users and issues the JWTs that guard
// the protected routes.
package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/users"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserSummary is the identity returned to clients.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Response is returned by Register, Login and Refresh.
type Response struct {
	Pair
	User UserSummary `json:"user"`
}

type Service struct {
	users  *users.Service
	tokens *Tokens
	log    *zap.SugaredLogger
}

func NewService(u *users.Service, tokens *Tokens) *Service {
	return &Service{users: u, tokens: tokens, log: logger.For(logger.ComponentAuth)}
}

// Tokens exposes the issuer for the request guard.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates a user and logs them in. A taken email is reported as
// a DuplicateError before anything is written.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Response, error) {
	email := users.NormalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return Response{}, err
	}
	if existing != nil {
		return Response{}, &standarderrors.DuplicateError{Collection: models.UserSchema.Name, Field: models.FieldEmail, Value: email}
	}

	user, err := s.users.Create(ctx, users.CreateInput{Name: in.Name, Email: email, Password: in.Password})
	if err != nil {
		return Response{}, err
	}
	s.log.Infow("User registered", "id", user.ID)
	return s.respond(user)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Response, error) {
	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return Response{}, err
	}
	if user == nil || !users.VerifyPassword(*user, in.Password) {
		s.log.Debugw("Login rejected")
		return Response{}, ErrInvalidCredentials
	}
	return s.respond(*user)
}

// Refresh exchanges a refresh token for a new pair. The user must still
// exist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Response, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return Response{}, err
	}
	user, err := s.users.FindOne(ctx, claims.Subject)
	if err != nil {
		return Response{}, err
	}
	if user == nil {
		return Response{}, ErrInvalidToken
	}
	return s.respond(*user)
}

// ValidateUser returns the identity behind a token subject, or nil when the
// user no longer exists.
func (s *Service) ValidateUser(ctx context.Context, userID string) (*UserSummary, error) {
	user, err := s.users.FindOne(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	summary := summarize(*user)
	return &summary, nil
}

func (s *Service) respond(user models.User) (Response, error) {
	pair, err := s.tokens.Issue(user.ID, user.Email, "")
	if err != nil {
		return Response{}, err
	}
	return Response{Pair: pair, User: summarize(user)}, nil
}

func summarize(user models.User) UserSummary {
	return UserSummary{ID: user.ID, Email: user.Email, Name: user.Name}
}
