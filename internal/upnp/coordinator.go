package upnp

import (
	"bytes"
	"context"
	"strings"
)

// IsCoordinator reports whether the player at address, identified by uuid,
// coordinates its group. A player that is alone in its group is its own
// coordinator. Otherwise the group id is expected to start with the
// coordinator's uuid followed by a colon; players that do not follow that
// convention are reported as non-coordinators. Any failure reports false.
func (c *Client) IsCoordinator(ctx context.Context, address, uuid string) bool {
	if address == "" || uuid == "" {
		return false
	}

	body := actionElement(serviceZoneGroupTopology, "GetZoneGroupAttributes", "")
	resp, ok := c.call(ctx, address, topLevel, serviceZoneGroupTopology, "GetZoneGroupAttributes", body)
	if !ok || len(bytes.TrimSpace(resp)) == 0 {
		return false
	}

	groupID, ok := extractTag(resp, "CurrentZoneGroupID")
	if !ok {
		return false
	}
	members, ok := extractTag(resp, "CurrentZonePlayerUUIDsInGroup")
	if !ok {
		return false
	}

	if !strings.Contains(members, ",") {
		return true
	}
	lead, _, _ := strings.Cut(groupID, ":")
	return lead == uuid
}
