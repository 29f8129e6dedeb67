// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package version

import "fmt"

const MAJOR uint = 0
const MINOR uint = 1
const PATCH uint = 0

// Revision is set at link time, e.g.
// -ldflags "-X github.com/nttcom/dhcp6notify/internal/pkg/version.Revision=abc123"
var Revision string

func Version() string {
	v := fmt.Sprintf("%d.%d.%d", MAJOR, MINOR, PATCH)
	if Revision != "" {
		v += "+" + Revision
	}
	return v
}
