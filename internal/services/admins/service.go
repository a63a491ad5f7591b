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

// Package admins seeds the default administrator and authenticates admin
// panel logins.
package admins

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/repository"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/users"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/logger"
)

// SeedRole is the role of the account created by SeedDefault.
const SeedRole = "super_admin"

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type Service struct {
	repo repository.Repository
	log  *zap.SugaredLogger
	now  func() time.Time
}

func NewService(repo repository.Repository) *Service {
	return &Service{repo: repo, log: logger.For(logger.ComponentAdminSeed), now: time.Now}
}

// SeedDefault creates the administrator described by ADMIN_EMAIL and
// ADMIN_PASSWORD unless one with that email exists. Empty credentials skip
// seeding. It reports whether an account was created.
func (s *Service) SeedDefault(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		s.log.Infow("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return false, nil
	}
	email = users.NormalizeEmail(email)

	existing, err := s.repo.FindByField(ctx, models.FieldEmail, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.log.Debugw("Default admin already exists", "email", email)
		return false, nil
	}

	rec, err := s.repo.Create(ctx, repository.Fields{
		models.FieldEmail:    email,
		models.FieldPassword: password,
		models.FieldRole:     SeedRole,
		models.FieldName:     "Administrator",
	})
	if err != nil {
		return false, err
	}
	s.log.Infow("Default admin created", "id", rec.ID, "email", email)
	return true, nil
}

// Login verifies the credentials of an active admin and records the time
// and address of the login.
func (s *Service) Login(ctx context.Context, in LoginInput, ip string) (models.Admin, error) {
	rec, err := s.repo.FindByField(ctx, models.FieldEmail, users.NormalizeEmail(in.Email))
	if err != nil {
		return models.Admin{}, err
	}
	if rec == nil || !rec.Bool(models.FieldIsActive) || !repository.VerifySecret(*rec, models.FieldPassword, in.Password) {
		return models.Admin{}, auth.ErrInvalidCredentials
	}

	updated, err := s.repo.Update(ctx, rec.ID, repository.Fields{
		models.FieldLastLoginAt: s.now(),
		models.FieldLastLoginIP: ip,
	})
	if err != nil {
		return models.Admin{}, err
	}
	return models.AdminFromRecord(updated), nil
}

// FindAll lists every admin. The slice is never nil.
func (s *Service) FindAll(ctx context.Context) ([]models.Admin, error) {
	recs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Admin, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.AdminFromRecord(rec))
	}
	return out, nil
}

// FindOne returns nil when no admin has id.
func (s *Service) FindOne(ctx context.Context, id string) (*models.Admin, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	admin := models.AdminFromRecord(*rec)
	return &admin, nil
}

// Deactivate disables logins for id.
func (s *Service) Deactivate(ctx context.Context, id string) (models.Admin, error) {
	rec, err := s.repo.Update(ctx, id, repository.Fields{models.FieldIsActive: false})
	if err != nil {
		return models.Admin{}, err
	}
	return models.AdminFromRecord(rec), nil
}
