// Package logo defines the branding roles an operator can override, the
// naming patterns used to find their copies in a web bundle, and the
// on-disk store holding the uploaded replacements.
package logo

import (
	"fmt"
	"strings"
)

// Role identifies one overridable branding image.
type Role string

const (
	RoleIcon        Role = "icon"
	RoleBannerDark  Role = "banner-dark"
	RoleBannerLight Role = "banner-light"
)

// hashPlaceholder marks the fingerprint segment in an intercepted path template.
const hashPlaceholder = "{hash}"

// maxHashLen bounds the fingerprint segment accepted in file names and paths.
const maxHashLen = 64

// Pattern matches a bundle file name: Base followed by one of Exts, with an
// optional alphanumeric fingerprint segment in between ("base.a1b2c3.png").
type Pattern struct {
	Base string
	Exts []string
}

// Match reports whether name is Base+ext or Base+"."+hash+ext.
func (p Pattern) Match(name string) bool {
	for _, ext := range p.Exts {
		stem, ok := strings.CutSuffix(name, ext)
		if !ok {
			continue
		}
		if stem == p.Base {
			return true
		}
		if hash, ok := strings.CutPrefix(stem, p.Base+"."); ok && isHash(hash) {
			return true
		}
	}
	return false
}

func (p Pattern) String() string {
	return p.Base + "[.<hash>]{" + strings.Join(p.Exts, ",") + "}"
}

// Spec describes one role: where its override lives, how uploads name it,
// which bundle files it replaces and which request paths it shadows.
type Spec struct {
	Role      Role
	FileName  string    // canonical file name inside the override directory
	FormField string    // multipart field name on upload
	StatusKey string    // key in the status response
	Patterns  []Pattern // bundle files replaced by push distribution
	Paths     []string  // request path templates served by interception
}

// MatchFile reports whether a bundle file name belongs to this role.
func (s Spec) MatchFile(name string) bool {
	for _, p := range s.Patterns {
		if p.Match(name) {
			return true
		}
	}
	return false
}

// Table is the full set of role specs handed to the store, the distributor
// and the interceptor.
type Table []Spec

// DefaultTable returns the role table for a Jellyfin-style web bundle.
func DefaultTable() Table {
	return Table{
		{
			Role:      RoleIcon,
			FileName:  "icon-transparent.png",
			FormField: "Logo",
			StatusKey: "iconSet",
			Patterns: []Pattern{
				{Base: "icon-transparent", Exts: []string{".png"}},
				{Base: "touchicon", Exts: []string{".png"}},
				{Base: "favicon", Exts: []string{".png", ".ico"}},
			},
			Paths: []string{
				"/assets/img/icon-transparent.png",
				"/icon-transparent.{hash}.png",
				"/touchicon.{hash}.png",
				"/favicon.ico",
				"/favicon.{hash}.ico",
				"/favicon.{hash}.png",
			},
		},
		{
			Role:      RoleBannerDark,
			FileName:  "banner-dark.png",
			FormField: "BannerDark",
			StatusKey: "bannerDarkSet",
			Patterns: []Pattern{
				{Base: "banner-dark", Exts: []string{".png"}},
			},
			Paths: []string{
				"/assets/img/banner-dark.png",
				"/banner-dark.{hash}.png",
			},
		},
		{
			Role:      RoleBannerLight,
			FileName:  "banner-light.png",
			FormField: "BannerLight",
			StatusKey: "bannerLightSet",
			Patterns: []Pattern{
				{Base: "banner-light", Exts: []string{".png"}},
			},
			Paths: []string{
				"/assets/img/banner-light.png",
				"/banner-light.{hash}.png",
			},
		},
	}
}

// Lookup returns the spec for a role.
func (t Table) Lookup(r Role) (Spec, bool) {
	for _, s := range t {
		if s.Role == r {
			return s, true
		}
	}
	return Spec{}, false
}

// Roles lists the roles in table order.
func (t Table) Roles() []Role {
	roles := make([]Role, 0, len(t))
	for _, s := range t {
		roles = append(roles, s.Role)
	}
	return roles
}

// ParseRole resolves a role name against the table.
func (t Table) ParseRole(name string) (Role, error) {
	if _, ok := t.Lookup(Role(name)); ok {
		return Role(name), nil
	}
	return "", &Error{Kind: KindValidation, Op: "parse role", Err: fmt.Errorf("unknown role %q", name)}
}

// RoleForFile returns the first role whose patterns match a bundle file name.
func (t Table) RoleForFile(name string) (Role, bool) {
	for _, s := range t {
		if s.MatchFile(name) {
			return s.Role, true
		}
	}
	return "", false
}

// MatchPath resolves a request path against the intercepted path templates.
// It returns the role and the slash-separated path relative to the bundle
// root. A path that has the shape of a hashed template but carries an
// invalid fingerprint yields a validation error and no role.
func (t Table) MatchPath(path string) (Role, string, error) {
	for _, s := range t {
		for _, tmpl := range s.Paths {
			ok, err := matchTemplate(tmpl, path)
			if err != nil {
				return "", "", err
			}
			if ok {
				return s.Role, strings.TrimPrefix(path, "/"), nil
			}
		}
	}
	return "", "", nil
}

func matchTemplate(tmpl, path string) (bool, error) {
	prefix, suffix, hashed := strings.Cut(tmpl, hashPlaceholder)
	if !hashed {
		return tmpl == path, nil
	}
	if len(path) <= len(prefix)+len(suffix) ||
		!strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return false, nil
	}
	if err := ValidateHash(path[len(prefix) : len(path)-len(suffix)]); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateHash checks a fingerprint segment before it is used to build a
// filesystem path: 1 to 64 ASCII letters or digits.
func ValidateHash(hash string) error {
	if !isHash(hash) {
		return &Error{Kind: KindValidation, Op: "validate hash", Err: fmt.Errorf("invalid fingerprint segment %q", hash)}
	}
	return nil
}

func isHash(s string) bool {
	if s == "" || len(s) > maxHashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
