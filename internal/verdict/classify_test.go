package verdict

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		smtp        SmtpOutcome
		isCatchAll  bool
		isDisposable bool
		want        Reachability
	}{
		{"deliverable, no flags", SmtpOutcome{Kind: Deliverable}, false, false, ReachSafe},
		{"deliverable but catch-all", SmtpOutcome{Kind: Deliverable}, true, false, ReachRisky},
		{"deliverable but disposable", SmtpOutcome{Kind: Deliverable}, false, true, ReachRisky},
		{"deliverable, both catch-all and disposable", SmtpOutcome{Kind: Deliverable}, true, true, ReachRisky},
		{"undeliverable always invalid", SmtpOutcome{Kind: Undeliverable, Reason: ReasonNoSuchHost}, false, false, ReachInvalid},
		{"undeliverable ignores catch-all flag", SmtpOutcome{Kind: Undeliverable, Reason: ReasonMailboxDoesNotExist}, true, false, ReachInvalid},
		{"risky outcome always risky", SmtpOutcome{Kind: Risky, Reason: ReasonCatchAll}, false, false, ReachRisky},
		{"unknown outcome always unknown", SmtpOutcome{Kind: Unknown, Reason: ReasonDNSTimeout}, false, false, ReachUnknown},
		{"unknown skip outcome", SmtpOutcome{Kind: Unknown, Reason: ReasonSMTPUnknown}, false, false, ReachUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.smtp, c.isCatchAll, c.isDisposable)
			if got != c.want {
				t.Errorf("Classify(%v, catchAll=%v, disposable=%v) = %s, want %s", c.smtp, c.isCatchAll, c.isDisposable, got, c.want)
			}
		})
	}
}
