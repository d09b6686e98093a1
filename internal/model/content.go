package model

import (
	"strings"
)

// CredentialTag starts a credential record line in a *.pwd document.
const CredentialTag = "[PWD]"

// Credential is one "[PWD] service::secret" record.
type Credential struct {
	Service string
	Secret  string
}

// ContentLine is one display line of a document.
type ContentLine struct {
	Text       string      // Raw line text
	Credential *Credential // Set when the line is a credential record
}

// ParseCredential splits the part after the tag on the first "::".
// Both fields are trimmed. A missing separator yields an empty secret.
func ParseCredential(s string) Credential {
	service, secret, _ := strings.Cut(s, "::")
	return Credential{
		Service: strings.TrimSpace(service),
		Secret:  strings.TrimSpace(secret),
	}
}

// ParseCredentialLine reports whether line is a credential record and parses it.
func ParseCredentialLine(line string) (Credential, bool) {
	rest, ok := strings.CutPrefix(line, CredentialTag)
	if !ok {
		return Credential{}, false
	}
	return ParseCredential(rest), true
}

// SplitLines splits document content on '\n', keeping empty lines.
func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}

// ParseDocument turns a credential document into display lines.
// Lines that are not credential records stay opaque text.
func ParseDocument(content string) []ContentLine {
	lines := SplitLines(content)
	out := make([]ContentLine, 0, len(lines))
	for _, l := range lines {
		cl := ContentLine{Text: l}
		if c, ok := ParseCredentialLine(l); ok {
			cl.Credential = &c
		}
		out = append(out, cl)
	}
	return out
}

// Credentials returns only the credential records of a document, in order.
func Credentials(content string) []Credential {
	var out []Credential
	for _, l := range ParseDocument(content) {
		if l.Credential != nil {
			out = append(out, *l.Credential)
		}
	}
	return out
}
