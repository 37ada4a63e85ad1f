package backend

import (
	"fmt"
	"strings"
)

// DefaultDomain is appended to a project identifier when no explicit URL is set.
const DefaultDomain = "supabase.co"

// Settings are the raw identity backend settings. Every field is optional;
// Resolve applies the precedence rules.
type Settings struct {
	URL            string `env:"AUTH_BACKEND_URL"`
	ProjectID      string `env:"AUTH_BACKEND_PROJECT_ID"`
	Domain         string `env:"AUTH_BACKEND_DOMAIN" envDefault:"supabase.co"`
	Key            string `env:"AUTH_BACKEND_KEY"`
	PublishableKey string `env:"AUTH_BACKEND_PUBLISHABLE_KEY"`
	AnonKey        string `env:"AUTH_BACKEND_ANON_KEY"`
}

// ResolveURL returns the explicit URL, else https://<project-id>.<domain>,
// else "".
func (s Settings) ResolveURL() string {
	if u := strings.TrimSpace(s.URL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if id := strings.TrimSpace(s.ProjectID); id != "" {
		domain := strings.Trim(strings.TrimSpace(s.Domain), ".")
		if domain == "" {
			domain = DefaultDomain
		}
		return fmt.Sprintf("https://%s.%s", id, domain)
	}
	return ""
}

// ResolveKey returns the primary key, else the publishable alias, else the
// legacy anon alias, else "".
func (s Settings) ResolveKey() string {
	for _, k := range []string{s.Key, s.PublishableKey, s.AnonKey} {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return ""
}

// Status reports whether settings are complete enough to build a handle.
type Status struct {
	Ready  bool
	Reason string
}

// Status evaluates the settings. Reason is empty when Ready.
func (s Settings) Status() Status {
	var missing []string
	if s.ResolveURL() == "" {
		missing = append(missing, "backend URL (set AUTH_BACKEND_URL or AUTH_BACKEND_PROJECT_ID)")
	}
	if s.ResolveKey() == "" {
		missing = append(missing, "backend key (set AUTH_BACKEND_KEY, AUTH_BACKEND_PUBLISHABLE_KEY or AUTH_BACKEND_ANON_KEY)")
	}
	if len(missing) == 0 {
		return Status{Ready: true}
	}
	return Status{Reason: "missing " + strings.Join(missing, " and ")}
}
