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
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table.
const maxTrackedClients = 10000

// RateLimiter allows limit requests per window for each client IP. Requests
// from trusted IPs are never limited.
type RateLimiter struct {
	window  time.Duration
	limit   int
	trusted map[string]struct{}

	mu       sync.Mutex
	limiters *lru.ARCCache
}

func NewRateLimiter(window time.Duration, limit int, trusted []string) (*RateLimiter, error) {
	if window <= 0 || limit <= 0 {
		return nil, fmt.Errorf("rate limit needs a positive window and limit, got %s and %d", window, limit)
	}
	limiters, err := lru.NewARC(maxTrackedClients)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(trusted))
	for _, ip := range trusted {
		set[ip] = struct{}{}
	}
	return &RateLimiter{window: window, limit: limit, trusted: set, limiters: limiters}, nil
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters.Get(ip); ok {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(r.window/time.Duration(r.limit)), r.limit)
	r.limiters.Add(ip, l)
	return l
}

// Allow reports whether ip may issue another request now.
func (r *RateLimiter) Allow(ip string) bool {
	if _, ok := r.trusted[ip]; ok {
		return true
	}
	return r.limiter(ip).Allow()
}

// Middleware rejects limited requests with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := int(math.Ceil(r.window.Seconds()))
	return func(c *gin.Context) {
		ip := c.ClientIP()
		c.Header("RateLimit-Limit", strconv.Itoa(r.limit))
		if r.Allow(ip) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      "Too many requests from this IP, please try again later.",
			"retryAfter": retryAfter,
		})
	}
}
