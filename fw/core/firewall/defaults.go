package firewall

import "time"

const DefaultProfileName = "default"

func defaultRules(now time.Time) []Rule {
	return []Rule{
		{
			ID:          1,
			Name:        "Block inbound SSH",
			Description: "Block SSH connections from outside",
			Enabled:     true,
			Action:      ActionBlock,
			Direction:   DirectionInbound,
			Protocol:    ProtocolTCP,
			Port:        "22",
			Source:      Any,
			Destination: Local,
			Priority:    1,
			Created:     now,
		},
		{
			ID:          2,
			Name:        "Allow HTTP/HTTPS",
			Description: "Allow web traffic",
			Enabled:     true,
			Action:      ActionAllow,
			Direction:   DirectionInbound,
			Protocol:    ProtocolTCP,
			Port:        "80,443",
			Source:      Any,
			Destination: Local,
			Priority:    2,
			Created:     now,
		},
		{
			ID:          3,
			Name:        "Block malicious IPs",
			Description: "Block known malicious addresses",
			Enabled:     true,
			Action:      ActionBlock,
			Direction:   DirectionBoth,
			Protocol:    ProtocolAny,
			Port:        Any,
			Source:      Malicious,
			Destination: Any,
			Priority:    1,
			Created:     now,
		},
	}
}

func defaultProfiles() []Profile {
	return []Profile{
		{Name: DefaultProfileName, DisplayName: "Standard", Rules: []int64{1, 2, 3}, IsDefault: true},
		{Name: "strict", DisplayName: "Strict", Rules: []int64{1, 2, 3, 4, 5}},
		{Name: "permissive", DisplayName: "Permissive", Rules: []int64{2}},
	}
}
