// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebov-andrey/hindsight/resolve"
)

func TestCaptureSelfNonEmpty(t *testing.T) {
	r := resolve.New()
	defer r.Close()

	tr := Capture(r, 0)
	assert.Positive(t, tr.Len())
	assert.Len(t, tr.Addresses(), tr.Len())
}

func TestFramesYieldsAtLeastOnePerAddress(t *testing.T) {
	r := resolve.New()
	defer r.Close()

	tr := Capture(r, 0)
	require.Positive(t, tr.Len())

	count := 0
	for range tr.Frames() {
		count++
	}
	assert.GreaterOrEqual(t, count, tr.Len())
}

func TestFramesStopsEarlyWhenConsumerBreaks(t *testing.T) {
	r := resolve.New()
	defer r.Close()

	tr := Capture(r, 0)
	require.GreaterOrEqual(t, tr.Len(), 1)

	seen := 0
	for range tr.Frames() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}
