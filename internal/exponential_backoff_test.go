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

package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_GetBackoffTime(t *testing.T) {
	for i := 0; i < 20; i++ {
		backOff := GetBackoffTime(int64(i), 1*time.Microsecond, 1*time.Second)
		assert.GreaterOrEqual(t, backOff, time.Duration(0))
		assert.LessOrEqual(t, backOff, time.Second)
	}
	assert.Equal(t, time.Duration(0), GetBackoffTime(0, time.Second, time.Minute))
	assert.Equal(t, time.Duration(0), GetBackoffTime(3, 0, time.Minute))
	assert.Equal(t, time.Minute, GetBackoffTime(200, time.Second, time.Minute))
}

func Test_CyclesUntilConverge(t *testing.T) {
	var testTimes = []time.Duration{
		time.Millisecond,
		time.Microsecond,
		time.Nanosecond,
	}
	for _, testTime := range testTimes {
		var i = int64(0)
		for {
			backOff := GetBackoffTime(i, testTime, 1*time.Second)
			i += 1
			if backOff >= 1*time.Second {
				t.Logf("%s converged after %d iterations", testTime, i)
				break
			}
		}
	}
}

func Test_SleepBackedOffContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepBackedOffContext(ctx, 30, time.Second, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func Test_SleepBackedOffContextCompletes(t *testing.T) {
	assert.NoError(t, SleepBackedOffContext(context.Background(), 2, time.Millisecond, 5*time.Millisecond))
}
