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

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/united-manufacturing-hub/service-scaffold/internal/models"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/admins"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/auth"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/events"
	"github.com/united-manufacturing-hub/service-scaffold/internal/services/users"
	"github.com/united-manufacturing-hub/service-scaffold/pkg/standarderrors"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type broadcastRequest struct {
	Event string `json:"event" binding:"required"`
	Data  any    `json:"data"`
}

type adminLoginResponse struct {
	auth.Pair
	Admin models.Admin `json:"admin"`
}

type uriID struct {
	ID string `uri:"id" binding:"required"`
}

// MountUsers registers the user routes. Creating a user is public, every
// other route requires a token.
func (s *Server) MountUsers(svc *users.Service, tokens *auth.Tokens) {
	g := s.api.Group("/users")
	g.POST("", func(c *gin.Context) {
		var in users.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidInput(c, err)
			return
		}
		user, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	guarded := g.Group("", Guard(tokens))
	guarded.GET("", func(c *gin.Context) {
		list, err := svc.FindAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	guarded.GET("/:id", func(c *gin.Context) {
		var req uriID
		if err := c.ShouldBindUri(&req); err != nil {
			invalidInput(c, err)
			return
		}
		user, err := svc.FindOne(c.Request.Context(), req.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if user == nil {
			respondError(c, &standarderrors.NotFoundError{Collection: models.UserSchema.Name, ID: req.ID})
			return
		}
		c.JSON(http.StatusOK, user)
	})
	guarded.PATCH("/:id", func(c *gin.Context) {
		var req uriID
		if err := c.ShouldBindUri(&req); err != nil {
			invalidInput(c, err)
			return
		}
		var in users.UpdateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidInput(c, err)
			return
		}
		user, err := svc.Update(c.Request.Context(), req.ID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	})
	guarded.DELETE("/:id", func(c *gin.Context) {
		var req uriID
		if err := c.ShouldBindUri(&req); err != nil {
			invalidInput(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), req.ID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// MountAuth registers register, login, refresh and profile. Credential
// routes use the strict limiter.
func (s *Server) MountAuth(svc *auth.Service) {
	g := s.api.Group("/auth")
	g.POST("/register", s.Strict(), func(c *gin.Context) {
		var in auth.RegisterInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidInput(c, err)
			return
		}
		resp, err := svc.Register(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	})
	g.POST("/login", s.Strict(), func(c *gin.Context) {
		var in auth.LoginInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidInput(c, err)
			return
		}
		resp, err := svc.Login(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	g.POST("/refresh", s.Strict(), func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}
		resp, err := svc.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	g.GET("/profile", Guard(svc.Tokens()), func(c *gin.Context) {
		summary, err := svc.ValidateUser(c.Request.Context(), ClaimsFrom(c).Subject)
		if err != nil {
			respondError(c, err)
			return
		}
		if summary == nil {
			respondError(c, ErrUnauthorized)
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

// MountAdmins registers the admin panel routes. Listing admins requires an
// admin token.
func (s *Server) MountAdmins(svc *admins.Service, tokens *auth.Tokens) {
	s.api.POST("/auth/login", s.Strict(), func(c *gin.Context) {
		var in admins.LoginInput
		if err := c.ShouldBindJSON(&in); err != nil {
			invalidInput(c, err)
			return
		}
		admin, err := svc.Login(c.Request.Context(), in, c.ClientIP())
		if err != nil {
			respondError(c, err)
			return
		}
		pair, err := tokens.Issue(admin.ID, admin.Email, admin.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adminLoginResponse{Pair: pair, Admin: admin})
	})

	g := s.api.Group("/admins", Guard(tokens), RequireRole(models.DefaultAdminRole, admins.SeedRole))
	g.GET("", func(c *gin.Context) {
		list, err := svc.FindAll(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})
	g.GET("/:id", func(c *gin.Context) {
		var req uriID
		if err := c.ShouldBindUri(&req); err != nil {
			invalidInput(c, err)
			return
		}
		admin, err := svc.FindOne(c.Request.Context(), req.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if admin == nil {
			respondError(c, &standarderrors.NotFoundError{Collection: models.AdminSchema.Name, ID: req.ID})
			return
		}
		c.JSON(http.StatusOK, admin)
	})
}

// MountEvents serves the websocket at /ws and lets token holders broadcast
// through the API.
func (s *Server) MountEvents(hub *events.Hub, tokens *auth.Tokens) {
	s.Engine.GET("/ws", gin.WrapH(hub))
	if tokens == nil {
		return
	}
	s.api.POST("/events", Guard(tokens), func(c *gin.Context) {
		var req broadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}
		if err := hub.Broadcast(req.Event, req.Data); err != nil {
			invalidInput(c, err)
			return
		}
		c.Status(http.StatusAccepted)
	})
}
