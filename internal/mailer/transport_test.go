package mailer

import "testing"

func TestSelectProvider_Table(t *testing.T) {
	cases := []struct {
		sender string
		want   Provider
	}{
		{"bot@outlook.com", ProviderOutlook},
		{"bot@hotmail.com", ProviderOutlook},
		{"bot@live.com", ProviderOutlook},
		{"bot@yahoo.com", ProviderYahoo},
		{"bot@yahoo.co.uk", ProviderYahoo},
		{"bot@gmail.com", ProviderGmail},
		{"bot@example.org", ProviderGmail},
		{"no-at-sign", ProviderGmail},
		{"", ProviderGmail},
	}
	for _, tc := range cases {
		got := SelectProvider(tc.sender)
		if got != tc.want {
			t.Errorf("SelectProvider(%q) = %s, want %s", tc.sender, got.Name, tc.want.Name)
		}
	}
}

func TestSelectProvider_ProfileDetails(t *testing.T) {
	p := SelectProvider("bot@hotmail.com")
	if p.Host != "smtp-mail.outlook.com" || p.Port != 587 || p.ImplicitTLS {
		t.Fatalf("unexpected outlook profile: %+v", p)
	}

	p = SelectProvider("bot@yahoo.com")
	if p.Host != "smtp.mail.yahoo.com" || p.Port != 465 || !p.ImplicitTLS {
		t.Fatalf("unexpected yahoo profile: %+v", p)
	}

	p = SelectProvider("bot@corporate.net")
	if p.Host != "smtp.gmail.com" || p.Port != 465 || !p.ImplicitTLS {
		t.Fatalf("unexpected default profile: %+v", p)
	}
}

// Rule order matters: a domain matching both an earlier and a later rule
// must take the earlier one.
func TestSelectProvider_RuleOrder(t *testing.T) {
	if got := SelectProvider("bot@outlook.yahoo.example"); got != ProviderOutlook {
		t.Fatalf("expected outlook rule to win, got %s", got.Name)
	}
}
