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

package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/EagleChen/mapmutex"
)

// uniqueLocks serialises writers of the same unique value within the
// process. Keys are "<table>:<field>:<value>".
var uniqueLocks = mapmutex.NewCustomizedMapMutex(
	800,
	100000000,
	10,
	1.1,
	0.2)

func uniqueKey(table, field string, value any) string {
	return fmt.Sprintf("%s:%s:%v", table, field, value)
}

// lockUnique acquires every key in sorted order so that two writers never
// wait on each other in opposite order.
func lockUnique(ctx context.Context, keys []string) (func(), error) {
	sort.Strings(keys)
	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			uniqueLocks.Unlock(held[i])
		}
	}

	for i, key := range keys {
		if i > 0 && keys[i-1] == key {
			continue
		}
		for !uniqueLocks.TryLock(key) {
			if err := ctx.Err(); err != nil {
				release()
				return nil, err
			}
		}
		held = append(held, key)
	}
	return release, nil
}
