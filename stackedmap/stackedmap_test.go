// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retipool/retipool/stackedmap"
)

func M(a ...any) []any {
	return a
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key any) (any, bool, error) {
		v, r := src[key.(string)]
		return v, r, nil
	})

	tests := []struct {
		f         func()
		depth     int
		putKey    string
		putValue  string
		getKey    string
		getReturn []any
	}{
		{func() {}, 0, "", "", "foo", []any{"bar", true, nil}},
		{func() { sm.Push() }, 1, "foo", "baz", "foo", []any{"baz", true, nil}},
		{func() {}, 1, "foo", "baz1", "foo", []any{"baz1", true, nil}},
		{func() { sm.Push() }, 2, "foo", "qux", "foo", []any{"qux", true, nil}},
		{func() { sm.Pop() }, 1, "", "", "foo", []any{"baz1", true, nil}},
		{func() { sm.Pop() }, 0, "", "", "foo", []any{"bar", true, nil}},

		{func() { sm.Push(); sm.Push() }, 2, "", "", "", nil},
		{func() { sm.PopTo(1) }, 1, "", "", "", nil},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(sm.Depth(), test.depth)
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(M(sm.Get(test.getKey)), test.getReturn)
		}
	}
}

func TestStackedMapJournal(t *testing.T) {
	sm := stackedmap.New(func(key any) (any, bool, error) {
		return nil, false, nil
	})
	sm.Push()
	sm.Put("a", 1)
	sm.Push()
	sm.Put("b", 2)

	seen := make(map[any]any)
	sm.Journal(func(k, v any) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[any]any{"a": 1, "b": 2}, seen)

	// popping reverts the topmost writes
	sm.Pop()
	_, found, err := sm.Get("b")
	assert.NoError(t, err)
	assert.False(t, found)
}
