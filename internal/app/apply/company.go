package apply

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/peebo/peebo/internal/model"
)

const (
	unknownCompany = "Unknown Company"
	unknownRole    = "Unknown Role"
)

// ATS hosts that carry the company as the first path segment
// (e.g. jobs.ashbyhq.com/acme/...).
var pathCompanyHosts = []string{"ashbyhq.com", "greenhouse.io", "lever.co"}

var hostPrefixes = []string{"www.", "jobs.", "careers.", "boards.", "apply."}

// CompanyFromURL derives a display company name from a job posting URL.
func CompanyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return unknownCompany
	}
	host := strings.ToLower(u.Hostname())

	for _, h := range pathCompanyHosts {
		if host != h && !strings.HasSuffix(host, "."+h) {
			continue
		}
		if seg := firstPathSegment(u.Path); seg != "" {
			return prettifyCompany(seg)
		}
	}

	for trimmed := true; trimmed; {
		trimmed = false
		for _, p := range hostPrefixes {
			if strings.HasPrefix(host, p) {
				host = strings.TrimPrefix(host, p)
				trimmed = true
			}
		}
	}

	name, _, _ := strings.Cut(host, ".")
	if name == "" {
		return unknownCompany
	}
	return prettifyCompany(name)
}

func firstPathSegment(p string) string {
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			return s
		}
	}
	return ""
}

func prettifyCompany(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	if len(words) == 0 {
		return unknownCompany
	}
	return strings.Join(words, " ")
}

// normalizeJobURL adds a missing scheme and checks the URL has a host.
func normalizeJobURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("job url is required: %w", model.ErrNotValid)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid job url %q: %w", raw, model.ErrNotValid)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported job url scheme %q: %w", u.Scheme, model.ErrNotValid)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("job url %q has no host: %w", raw, model.ErrNotValid)
	}

	return u.String(), nil
}
