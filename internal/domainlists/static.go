// Package domainlists holds the bundled membership lists the Misc Signals
// and Syntax Analyzer components consult: disposable-email domains,
// role-account local-parts, free-provider domains, and parked-MX hosts.
// These are static data, kept declarative on purpose (spec §9) — adding a
// new entry is a one-line edit, never a code change.
package domainlists

// Disposable holds known burner/temporary-email domains.
var Disposable = map[string]struct{}{
	"temp-mail.org": {}, "10minutemail.com": {}, "guerrillamail.com": {},
	"mailinator.com": {}, "yopmail.com": {}, "throwawaymail.com": {},
	"tempmail.net": {}, "sharklasers.com": {}, "dispostable.com": {},
	"maildrop.cc": {}, "getnada.com": {}, "trashmail.com": {},
	"fakeinbox.com": {}, "mintemail.com": {}, "mohmal.com": {},
}

// FreeProviders holds domains operated by consumer free-email providers.
// Used both for the account-quality "is_free_provider" signal and as the
// suggestion corpus the Syntax Analyzer proposes typo corrections against.
var FreeProviders = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {},
	"outlook.com": {}, "hotmail.com": {}, "hotmail.co.uk": {}, "live.com": {}, "msn.com": {},
	"yahoo.com": {}, "yahoo.co.uk": {}, "ymail.com": {}, "rocketmail.com": {},
	"proton.me": {}, "protonmail.com": {}, "pm.me": {},
	"icloud.com": {}, "me.com": {}, "mac.com": {},
	"aol.com": {}, "zoho.com": {}, "gmx.com": {}, "mail.com": {},
}

// RoleAccounts holds local-parts that identify a function mailbox rather
// than a person — support@, sales@, and the like.
var RoleAccounts = map[string]struct{}{
	"admin": {}, "support": {}, "info": {}, "sales": {},
	"contact": {}, "help": {}, "office": {}, "marketing": {},
	"jobs": {}, "billing": {}, "abuse": {}, "postmaster": {},
	"noreply": {}, "no-reply": {}, "webmaster": {}, "hostmaster": {},
	"hr": {}, "careers": {}, "press": {}, "security": {},
}

// ParkedMXHosts holds MX host substrings that indicate a domain is parked
// (registered but not actively receiving mail) rather than truly
// unreachable — used to avoid misclassifying parked domains as a hard DNS
// failure when they still resolve.
var ParkedMXHosts = []string{
	"secureserver.net", "parking.reg.ru", "namecheap.com", "domaincontrol.com",
}
