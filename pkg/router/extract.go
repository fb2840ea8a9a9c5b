package router

import "regexp"

// sessionTokenRE matches an embedded session token anywhere in a message.
// The fixed marker form keeps matching unambiguous: the token body is opaque
// alphanumeric (plus - and _), and adjacent words are never consumed.
var sessionTokenRE = regexp.MustCompile(`\[\[session:([A-Za-z0-9_-]+)\]\]`)

// FormatSessionToken renders the marker form for embedding an ID in a
// message, the inverse of ExtractSessionID.
func FormatSessionToken(id string) string {
	return "[[session:" + id + "]]"
}

// ExtractSessionID finds an embedded session token in raw inbound text and
// returns the session ID plus the text with the token removed. No other
// characters are altered. If no token is present the ID is empty and the
// text is returned as-is. Pure function.
func ExtractSessionID(text string) (id, cleaned string) {
	m := sessionTokenRE.FindStringSubmatchIndex(text)
	if m == nil {
		return "", text
	}
	return text[m[2]:m[3]], text[:m[0]] + text[m[1]:]
}
