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

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scaffold_cache_hits_total",
		Help: "Cache hits by scope",
	}, []string{"scope"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scaffold_cache_misses_total",
		Help: "Cache misses by scope",
	}, []string{"scope"})
	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scaffold_cache_errors_total",
		Help: "Cache store failures by store and operation",
	}, []string{"store", "op"})
)
