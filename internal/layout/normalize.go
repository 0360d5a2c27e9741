package layout

import (
	"strings"
	"unicode"
)

// NamespaceSeparator joins an addon name and a symbol name in qualified
// labels (my-addon$foo-bar, MyAddon$FooBar).
const NamespaceSeparator = "$"

func isAlnum(r byte) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// ToAngleBracket converts a dasherized component name into its tag form:
// foo-bar/baz becomes FooBar::Baz. Names containing a dot are returned
// unchanged.
func ToAngleBracket(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '/':
			b.WriteString("::")
		case c != '-' && (c < 'a' || c > 'z'):
			b.WriteByte(c)
		case i == 0 || !isAlnum(name[i-1]):
			b.WriteByte(byte(unicode.ToUpper(rune(c))))
		case c == '-':
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FromAngleBracket converts a tag back to its dasherized name:
// FooBar::Baz becomes foo-bar/baz.
func FromAngleBracket(tag string) string {
	var b strings.Builder
	parts := strings.Split(tag, "::")
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(Dasherize(part))
	}
	return b.String()
}

// Dasherize turns camelCase and under_scored words into dash-case.
func Dasherize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == ' ':
			b.WriteByte('-')
		case c >= 'A' && c <= 'Z':
			if i > 0 && (s[i-1] >= 'a' && s[i-1] <= 'z' || s[i-1] >= '0' && s[i-1] <= '9') {
				b.WriteByte('-')
			}
			b.WriteByte(c + ('a' - 'A'))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizeServiceName maps an injected property or dotted service name
// to its registry name: currentUser becomes current-user and
// admin.authSession becomes admin/auth-session.
func NormalizeServiceName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = Dasherize(p)
	}
	return strings.Join(parts, "/")
}

// QualifiedName joins an addon and a symbol name. Angle-bracket context
// uses tag case for both halves.
func QualifiedName(addon, name string, angle bool) string {
	if angle {
		return ToAngleBracket(addon) + NamespaceSeparator + ToAngleBracket(name)
	}
	return addon + NamespaceSeparator + name
}

// SplitQualified splits a qualified label into addon and symbol parts.
func SplitQualified(label string) (addon, name string, ok bool) {
	addon, name, ok = strings.Cut(label, NamespaceSeparator)
	if !ok || addon == "" || name == "" {
		return "", label, false
	}
	return addon, name, true
}
