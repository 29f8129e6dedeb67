// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		name     string
		revision string
		want     string
	}{
		{"release", "", "0.1.0"},
		{"with revision", "abc123", "0.1.0+abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := Revision
			t.Cleanup(func() { Revision = saved })
			Revision = tt.revision
			assert.Equal(t, tt.want, Version())
		})
	}
}
