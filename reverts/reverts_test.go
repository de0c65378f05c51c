// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr("not an error"))
	assert.False(t, IsRevertErr(errors.New("plain")))

	err := New(CodeStake, "insufficient balance")
	assert.True(t, IsRevertErr(err))
	assert.Equal(t, "insufficient balance", err.Error())

	// reverts survive wrapping
	wrapped := errors.Wrap(err, "remove stake")
	assert.True(t, IsRevertErr(wrapped))
	assert.True(t, Is(wrapped, CodeStake))
	assert.False(t, Is(wrapped, CodeTiming))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "configuration", CodeConfiguration.String())
	assert.Equal(t, "timing", CodeTiming.String())
	assert.Equal(t, "unknown", CodeUnknown.String())
}
