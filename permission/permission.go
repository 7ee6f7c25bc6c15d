package permission

import (
	"errors"
	"sort"
	"strings"
)

// Action is the verb half of a permission pair.
type Action string

// Subject is the resource half of a permission pair.
type Subject string

// Built-in actions.
const (
	ActionCreate      Action = "create"
	ActionView        Action = "view"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionUploadImage Action = "upload_image"
)

// Built-in subjects.
const (
	SubjectUser Subject = "user"
)

// Permission is a single (action, subject) capability.
type Permission struct {
	Action  Action
	Subject Subject
}

// New returns the pair (action, subject).
func New(action Action, subject Subject) Permission {
	return Permission{Action: action, Subject: subject}
}

// String returns the textual form "action:subject".
func (p Permission) String() string {
	return string(p.Action) + ":" + string(p.Subject)
}

// Valid reports whether both halves are non-empty and contain no separator.
func (p Permission) Valid() bool {
	return p.Action != "" && p.Subject != "" &&
		!strings.Contains(string(p.Action), ":") &&
		!strings.Contains(string(p.Subject), ":")
}

// Parse reads the "action:subject" form.
func Parse(s string) (Permission, error) {
	action, subject, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Permission{}, errors.New("permission must have the form action:subject")
	}
	p := Permission{Action: Action(action), Subject: Subject(subject)}
	if !p.Valid() {
		return Permission{}, errors.New("invalid permission " + s)
	}
	return p, nil
}

// MustParse is Parse for static tables; it panics on error.
func MustParse(s string) Permission {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Grant is the set of pairs a role holds, as loaded for one request.
type Grant struct {
	RoleID      string
	Permissions []Permission
}

// Has reports whether the grant contains p.
func (g Grant) Has(p Permission) bool {
	for _, held := range g.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// Requirement is what an operation needs: any one of its pairs, or nothing
// at all when it is open.
type Requirement struct {
	anyOf []Permission
	open  bool
}

// Open reports whether the operation skips permission checks.
func (r Requirement) Open() bool {
	return r.open
}

// AnyOf returns a copy of the accepted pairs in sorted order.
func (r Requirement) AnyOf() []Permission {
	out := make([]Permission, len(r.anyOf))
	copy(out, r.anyOf)
	return out
}

// Allows reports whether grant satisfies r. An open requirement allows any
// grant; otherwise at least one accepted pair must be held.
func (r Requirement) Allows(grant Grant) bool {
	if r.open {
		return true
	}
	for _, want := range r.anyOf {
		if grant.Has(want) {
			return true
		}
	}
	return false
}

func newRequirement(perms []Permission) (Requirement, error) {
	if len(perms) == 0 {
		return Requirement{}, errors.New("requirement needs at least one permission; use RegisterOpen for open operations")
	}

	seen := make(map[Permission]struct{}, len(perms))
	anyOf := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if !p.Valid() {
			return Requirement{}, errors.New("invalid permission " + p.String())
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		anyOf = append(anyOf, p)
	}
	sort.Slice(anyOf, func(i, j int) bool { return anyOf[i].String() < anyOf[j].String() })

	return Requirement{anyOf: anyOf}, nil
}
