package r66

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openr66/r66/encoding/r66/localpacket"
)

func TestPartnerTable(t *testing.T) {
	table, err := NewPartnerTable("3.0.4")
	require.NoError(t, err)

	p := table.Register("hostA", "3.0.4")
	assert.True(t, p.UseJSON)

	// first registration wins.
	p = table.Register("hostA", "2.4.12")
	assert.Equal(t, "3.0.4", p.Version)
	assert.True(t, p.UseJSON)

	assert.False(t, table.Register("old", "2.4.12").UseJSON)
	assert.False(t, table.Register("weird", "not-a-version").UseJSON)
	assert.True(t, table.Register("new", "3.6.0").UseJSON)
	assert.Equal(t, 4, table.Len())

	assert.IsType(t, localpacket.JSONEncoding{}, table.Encoding("hostA", ";"))
	assert.Equal(t, localpacket.LegacyEncoding{Separator: "|"}, table.Encoding("old", "|"))
	assert.Equal(t, localpacket.LegacyEncoding{Separator: ";"}, table.Encoding("unknown", ";"))

	table.Forget("hostA")
	_, ok := table.Lookup("hostA")
	assert.False(t, ok)

	p = table.Register("hostA", "2.4.12")
	assert.False(t, p.UseJSON)
}

func TestNewPartnerTableInvalidVersion(t *testing.T) {
	_, err := NewPartnerTable("latest")
	assert.Error(t, err)
}
