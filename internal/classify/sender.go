package classify

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

var senderSuffixes = []string{" hiring team", " recruiting team", " recruiting", " talent team", " careers", " team", " jobs"}

// Mail domains that say nothing about the hiring company.
var genericDomains = []string{
	"ashbyhq.com", "greenhouse.io", "lever.co", "myworkday.com", "workday.com",
	"smartrecruiters.com", "icims.com", "gmail.com", "outlook.com", "agentmail.to",
}

// CompanyFromSender extracts the company of a sender like
// "Material Security Hiring Team <no-reply@ashbyhq.com>". The display name is
// preferred, the sender domain is used when there is none.
func CompanyFromSender(from string) string {
	name, addr := "", ""
	if a, err := mail.ParseAddress(from); err == nil {
		name, addr = a.Name, a.Address
	} else {
		n, rest, ok := strings.Cut(from, "<")
		name = n
		if ok {
			addr, _, _ = strings.Cut(rest, ">")
		} else if strings.Contains(from, "@") {
			name, addr = "", from
		}
	}

	name = strings.Trim(strings.TrimSpace(name), `"`)
	if len(name) > 4 && strings.EqualFold(name[:4], "the ") {
		name = name[4:]
	}
	for trimmed := true; trimmed; {
		trimmed = false
		for _, s := range senderSuffixes {
			if len(name) > len(s) && strings.EqualFold(name[len(name)-len(s):], s) {
				name = strings.TrimSpace(name[:len(name)-len(s)])
				trimmed = true
			}
		}
	}
	if name != "" && !strings.Contains(name, "@") {
		return name
	}

	return companyFromDomain(addr)
}

func companyFromDomain(addr string) string {
	_, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(addr)), "@")
	if !ok || domain == "" {
		return ""
	}
	for _, g := range genericDomains {
		if domain == g || strings.HasSuffix(domain, "."+g) {
			return ""
		}
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return ""
	}
	label, _, _ := strings.Cut(registrable, ".")
	if label == "" {
		return ""
	}
	r := []rune(label)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var (
	rolePattern        = regexp.MustCompile(`for (?:the )?([A-Z][^.!?]+?)\s*(?:role|position)`)
	applicationPattern = regexp.MustCompile(`application for (?:the )?([A-Z][^.!?]+?)(?:[.!]|$)`)
	atCompanyPattern   = regexp.MustCompile(`\s+at\s+\S.*$`)
)

// RoleFromEmail extracts a role from sentences like "for the Staff Engineer
// role" or "your application for Staff Engineer.". Returns empty if none.
func RoleFromEmail(subject, preview string) string {
	text := subject + " " + preview

	if m := rolePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(atCompanyPattern.ReplaceAllString(m[1], ""))
	}
	if m := applicationPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(atCompanyPattern.ReplaceAllString(m[1], ""))
	}
	return ""
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCompany lowercases and drops every non alphanumeric character.
func NormalizeCompany(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// CompaniesMatch is true when one normalized name contains the other.
func CompaniesMatch(a, b string) bool {
	na, nb := NormalizeCompany(a), NormalizeCompany(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
