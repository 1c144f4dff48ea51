package auth

import (
	"fmt"
	"strings"
)

const didWebPrefix = "did:web:"

// DeriveDID builds the did:web identifier for username under domain.
// Ports in domain are percent encoded as the did:web method requires.
func DeriveDID(domain, username string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || username == "" {
		return ""
	}
	domain = strings.ReplaceAll(domain, ":", "%3A")
	return fmt.Sprintf("%s%s:users:%s", didWebPrefix, domain, username)
}

// ParseDID returns the domain and username encoded in a user DID
func ParseDID(did string) (domain, username string, ok bool) {
	if !strings.HasPrefix(did, didWebPrefix) {
		return "", "", false
	}

	parts := strings.Split(strings.TrimPrefix(did, didWebPrefix), ":")
	if len(parts) != 3 || parts[1] != "users" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}

	return strings.ReplaceAll(parts[0], "%3A", ":"), parts[2], true
}
