package r66

import (
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/openr66/r66/encoding/r66/localpacket"
	"github.com/openr66/r66/internal/sync"
)

// Partner is what is known of a peer once it has authenticated.
type Partner struct {
	HostID  string
	Version string
	UseJSON bool
}

// PartnerTable records the protocol version of every peer seen.
// The first version registered for a host wins.
type PartnerTable struct {
	partners sync.Map[string, Partner]
	jsonMin  *semver.Version
}

// NewPartnerTable returns a table sending JSON requests to partners at or above jsonMinVersion.
func NewPartnerTable(jsonMinVersion string) (*PartnerTable, error) {
	v, err := semver.NewVersion(jsonMinVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "json min version %q", jsonMinVersion)
	}

	return &PartnerTable{
		jsonMin: v,
	}, nil
}

// Register records hostID at version unless it is already known,
// and returns the entry in force.
func (t *PartnerTable) Register(hostID, version string) Partner {
	p := Partner{
		HostID:  hostID,
		Version: version,
		UseJSON: t.supportsJSON(version),
	}

	actual, _ := t.partners.LoadOrStore(hostID, p)
	return actual
}

// Lookup returns the entry of hostID.
func (t *PartnerTable) Lookup(hostID string) (Partner, bool) {
	return t.partners.Load(hostID)
}

// Forget drops hostID, so its next authentication registers again.
func (t *PartnerTable) Forget(hostID string) {
	t.partners.Delete(hostID)
}

// Len returns the number of known partners.
func (t *PartnerTable) Len() int {
	return t.partners.Len()
}

// Encoding returns the request encoding to use towards hostID.
func (t *PartnerTable) Encoding(hostID, separator string) localpacket.RequestEncoding {
	if p, ok := t.Lookup(hostID); ok && p.UseJSON {
		return localpacket.JSONEncoding{}
	}
	return localpacket.LegacyEncoding{Separator: separator}
}

func (t *PartnerTable) supportsJSON(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return !v.LessThan(t.jsonMin)
}
