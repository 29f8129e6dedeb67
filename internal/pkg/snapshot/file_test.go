// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nttcom/dhcp6notify/pkg/notifier"
)

const testSnapshot = `
bound: true
server: ["fe80::1"]
dns: ["2001:db8::53"]
search: [example.com, corp.example]
aftr: [aftr.example]
mape:
  rules:
    - ipv4prefix: 192.0.2.0/24
      ipv6prefix: "2001:db8:aa00::/40"
      ealen: 16
      fmr: true
      portparams:
        - {offset: 6, psidlen: 8, psid: 52}
  br: ["2001:db8::1"]
mapt:
  rules:
    - ipv4prefix: 192.0.2.0/24
      ipv6prefix: "2001:db8:1::/48"
      ealen: 8
  dmr: ["2001:db8:ffff::/64"]
lw4o6:
  rules:
    - ipv4prefix: 192.0.2.5
      ipv6prefix: "2001:db8:1234:5600::/56"
  br: ["2001:db8::1"]
custom:
  - {code: 99, value: abcd}
passthru: "0017"
prefixes:
  - prefix: "2001:db8:aa00::/56"
    valid: 7200
    preferred: 3600
    excluded: "2001:db8:aa00:1::/64"
  - prefix: "2001:db8:bb00::/56"
    iaid: 2
addresses:
  - prefix: "2001:db8::100"
    valid: 7200
ra:
  addresses:
    - {prefix: "2001:db8:1::/64", valid: 1800}
  routes:
    - {prefix: "::/0", router: "fe80::1", valid: 1800, priority: 1}
  dns:
    - {prefix: "2001:db8::53", valid: 600}
  domains:
    - {domain: example.com, valid: 600}
    - {domain: stale.example, valid: 0}
  hop_limit: 64
  mtu: 1500
  reachable: 30000
  retransmit: 1000
`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(testSnapshot))
	require.NoError(t, err)

	doc, err := notifier.NewAssembler(s, nil, nil).Build()
	require.NoError(t, err)
	defer doc.Release()
	root := doc.Root()

	tests := []struct {
		field string
		want  string
	}{
		{"SERVER", `["fe80::1"]`},
		{"RDNSS", `["2001:db8::53"]`},
		{"DOMAINS", `["example.com","corp.example"]`},
		{"AFTR", `["aftr.example"]`},
		{"NTP_FQDN", `[]`},
		{"MAPE", `[{"ipv4prefix":"192.0.2.0","ipv6prefix":"2001:db8:aa00::","fmr":1,"type":"map-e","ealen":16,"prefix4len":24,"prefix6len":40,"offset":6,"psidlen":8,"psid":52,"br":"2001:db8::1"}]`},
		{"MAPT", `[{"ipv4prefix":"192.0.2.0","ipv6prefix":"2001:db8:1::","fmr":0,"type":"map-t","ealen":8,"prefix4len":24,"prefix6len":48,"dmr":"2001:db8:ffff::","dmrprefix6len":64}]`},
		{"LW4O6", `[{"ipv4prefix":"192.0.2.5","ipv6prefix":"2001:db8:1234:5600::","type":"lw4o6","prefix4len":32,"prefix6len":56,"br":"2001:db8::1"}]`},
		{"OPTION_99", `"abcd"`},
		{"PREFIXES", `[{"target":"2001:db8:aa00::","length":56,"valid":7200,"preferred":3600,"t1":0,"t2":0,"excluded":"2001:db8:aa00:1::","excluded_length":64},` +
			`{"target":"2001:db8:bb00::","length":56,"valid":0,"preferred":0,"t1":0,"t2":0,"iaid":2}]`},
		{"ADDRESSES", `[{"target":"2001:db8::100","length":128,"valid":7200,"preferred":0,"t1":0,"t2":0}]`},
		{"RA_ADDRESSES", `[{"target":"2001:db8:1::","length":64,"valid":1800,"preferred":0,"t1":0,"t2":0}]`},
		{"RA_ROUTES", `[{"target":"::","length":0,"router":"fe80::1","valid":1800,"priority":1}]`},
		{"RA_DNS", `[{"target":"2001:db8::53"}]`},
		{"RA_DOMAINS", `["example.com"]`},
		{"RA_HOPLIMIT", `64`},
		{"RA_MTU", `1500`},
		{"RA_REACHABLE", `30000`},
		{"RA_RETRANSMIT", `1000`},
		{"PASSTHRU", `"0017"`},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, ok := root.Get(tt.field)
			require.True(t, ok)
			got, err := v.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "bogus: 1\n"},
		{"bad address", "dns: [not-an-address]\n"},
		{"bad domain", "search: [\"" + strings.Repeat("a", 64) + ".example\"]\n"},
		{"bad hex", "custom: [{code: 1, value: xyz}]\n"},
		{"bad passthru", "passthru: \"0\"\n"},
		{"ipv6 rule prefix4", "mape: {rules: [{ipv4prefix: \"2001:db8::\", ipv6prefix: \"2001:db8::/32\"}]}\n"},
		{"exclusion on address", "addresses: [{prefix: \"2001:db8::1\", excluded: \"2001:db8::/64\"}]\n"},
		{"ipv4 lease", "addresses: [{prefix: 192.0.2.1}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0o600))
	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, s.IsBound())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.False(t, empty.IsBound())
}
