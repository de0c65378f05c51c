// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errors.New("not found")
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func TestBucketGetter(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want string
	}{
		{Bucket(""), "k1", "v1"},
		{Bucket(""), "k2", "v2"},
		{Bucket("k"), "1", "v1"},
		{Bucket("k"), "2", "v2"},
		{Bucket("k1"), "", "v1"},
	}
	for _, tt := range tests {
		got, err := tt.b.NewGetter(m).Get([]byte(tt.key))
		assert.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}

	has, err := Bucket("k").NewGetter(m).Has([]byte("k1"))
	assert.NoError(t, err)
	assert.False(t, has, "prefixed getter must not see unprefixed keys")
}

func TestBucketPutter(t *testing.T) {
	m := mem{}

	assert.NoError(t, Bucket("p").NewPutter(m).Put([]byte("x"), []byte("y")))
	assert.Equal(t, "y", m["px"])

	assert.NoError(t, Bucket("p").NewPutter(m).Delete([]byte("x")))
	_, ok := m["px"]
	assert.False(t, ok)
}
