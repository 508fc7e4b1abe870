package smtpprobe

import (
	"testing"

	"mailvetter/internal/verdict"
)

func TestClassifyGmailMailboxMissing(t *testing.T) {
	o := Classify(550, "5.1.1 The email account that you tried to reach does not exist", verdict.ProviderGmail, true)
	if o.Kind != verdict.Undeliverable || o.Reason != verdict.ReasonMailboxDoesNotExist {
		t.Fatalf("got %v", o)
	}
}

func TestClassifyGreylistTakesPriorityOverGenericPattern(t *testing.T) {
	o := Classify(451, "4.7.1 greylisted, please try again later", verdict.ProviderGeneric, true)
	if o.Kind != verdict.Unknown || o.Reason != verdict.ReasonGreylisted {
		t.Fatalf("got %v", o)
	}
}

func TestClassifyGenericMailboxFull(t *testing.T) {
	o := Classify(552, "5.2.2 mailbox full", verdict.ProviderGeneric, true)
	if o.Kind != verdict.Undeliverable || o.Reason != verdict.ReasonMailboxFull {
		t.Fatalf("got %v", o)
	}
}

func TestClassifyUnmatched5xxAtRcptIsMailboxRejected(t *testing.T) {
	o := Classify(550, "policy violation, message refused", verdict.ProviderGeneric, true)
	if o.Kind != verdict.Undeliverable || o.Reason != verdict.ReasonMailboxRejected {
		t.Fatalf("got %v", o)
	}
}

func TestClassifySuccessAtRcptIsDeliverable(t *testing.T) {
	o := Classify(250, "2.1.5 Recipient OK", verdict.ProviderGeneric, true)
	if o.Kind != verdict.Deliverable {
		t.Fatalf("got %v", o)
	}
}

func TestClassifySuccessNotAtRcptIsUnknown(t *testing.T) {
	o := Classify(250, "2.1.0 Sender OK", verdict.ProviderGeneric, false)
	if o.Kind != verdict.Unknown || o.Reason != verdict.ReasonSMTPUnknown {
		t.Fatalf("got %v", o)
	}
}

func TestClassifyExactProviderBeforeGeneric(t *testing.T) {
	// 550 5.1.1 matches both the Gmail-specific row and the generic
	// "mailbox unavailable" row; Gmail's row must win for a gmail reply even
	// though the generic bucket would also classify correctly, per the
	// exact-provider-first rule.
	o := Classify(550, "5.1.1 mailbox unavailable", verdict.ProviderGmail, true)
	if o.Kind != verdict.Undeliverable || o.Reason != verdict.ReasonMailboxDoesNotExist {
		t.Fatalf("got %v", o)
	}
}

func TestClassifyYahooCaptcha(t *testing.T) {
	o := Classify(451, "4.7.0 [TSS04] Messages from x.x.x.x temporarily deferred due to unexpected volume, captcha required", verdict.ProviderYahoo, true)
	if o.Kind != verdict.Unknown || o.Reason != verdict.ReasonNeedsCaptcha {
		t.Fatalf("got %v", o)
	}
}
