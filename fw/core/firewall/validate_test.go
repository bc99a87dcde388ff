package firewall

import (
	"strings"
	"testing"
)

func validInput() RuleInput {
	return RuleInput{
		Name:        ptr("Allow DNS"),
		Action:      ptr(ActionAllow),
		Direction:   ptr(DirectionOutbound),
		Protocol:    ptr(ProtocolUDP),
		Port:        ptr("53"),
		Source:      ptr(Local),
		Destination: ptr("dns.example.com"),
	}
}

func TestValidateRule_Valid(t *testing.T) {
	if v := ValidateRule(validInput()); len(v) != 0 {
		t.Errorf("expected no violations, got %v", v)
	}
}

func TestValidateRule_Violations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RuleInput)
		want   string
	}{
		{"short name", func(in *RuleInput) { in.Name = ptr("  ab  ") }, "at least 3"},
		{"missing name", func(in *RuleInput) { in.Name = nil }, "at least 3"},
		{"bad action", func(in *RuleInput) { in.Action = ptr(Action("drop")) }, "invalid action"},
		{"missing action", func(in *RuleInput) { in.Action = nil }, "invalid action"},
		{"bad direction", func(in *RuleInput) { in.Direction = ptr(Direction("sideways")) }, "invalid direction"},
		{"bad protocol", func(in *RuleInput) { in.Protocol = ptr(Protocol("sctp")) }, "invalid protocol"},
		{"port text", func(in *RuleInput) { in.Port = ptr("http") }, "invalid port token"},
		{"port too big", func(in *RuleInput) { in.Port = ptr("70000") }, "out of range"},
		{"reversed range", func(in *RuleInput) { in.Port = ptr("90-80") }, "out of range"},
		{"empty source", func(in *RuleInput) { in.Source = ptr(" ") }, "source address required"},
		{"bad host", func(in *RuleInput) { in.Destination = ptr("bad host!") }, "invalid destination"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validInput()
			c.mutate(&in)
			v := ValidateRule(in)
			if len(v) != 1 || !strings.Contains(v[0], c.want) {
				t.Errorf("expected one violation containing %q, got %v", c.want, v)
			}
		})
	}
}

func TestValidateRule_AcceptsRangesAndIPv6(t *testing.T) {
	in := validInput()
	in.Port = ptr("22, 6881-6889,0-65535")
	in.Source = ptr("2001:db8::1")
	if v := ValidateRule(in); len(v) != 0 {
		t.Errorf("expected no violations, got %v", v)
	}
}
