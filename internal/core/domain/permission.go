package domain

import "strings"

// Wildcard matches any project or service component.
const Wildcard = "*"

// PermissionContent is one (project, service) predicate pair. Either
// component may be the wildcard "*".
type PermissionContent struct {
	Project string `json:"project"`
	Service string `json:"service"`
}

// Matches reports whether this pair grants access to the given project and
// service labels.
func (c PermissionContent) Matches(project, service string) bool {
	if c.Project != Wildcard && c.Project != project {
		return false
	}
	return c.Service == Wildcard || c.Service == service
}

// Permission grants access to every container whose project/service labels
// satisfy at least one content pair.
type Permission struct {
	ID      int64               `json:"id"`
	Name    string              `json:"name"`
	Content []PermissionContent `json:"content"`
}

// Matches reports whether any content pair matches the given labels.
func (p Permission) Matches(project, service string) bool {
	for _, c := range p.Content {
		if c.Matches(project, service) {
			return true
		}
	}
	return false
}

// ParseContent parses the stored wire form
//
//	project:service|project:service|...
//
// Pairs that are not exactly two colon-separated tokens are silently
// dropped, so the result may be empty even for non-empty input. A trailing
// separator (as written by the legacy formatter) parses to the same list.
func ParseContent(raw string) []PermissionContent {
	var contents []PermissionContent
	for _, pair := range strings.Split(raw, "|") {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			continue
		}
		contents = append(contents, PermissionContent{Project: parts[0], Service: parts[1]})
	}
	return contents
}

// FormatContent renders the wire form without a trailing separator.
// ParseContent accepts both shapes, so rows written either way round-trip.
func FormatContent(contents []PermissionContent) string {
	pairs := make([]string, 0, len(contents))
	for _, c := range contents {
		pairs = append(pairs, c.Project+":"+c.Service)
	}
	return strings.Join(pairs, "|")
}
