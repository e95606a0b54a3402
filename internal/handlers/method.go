package handlers

import "strings"

// Method is a WebDAV verb the gateway routes
type Method int

const (
	MethodGet Method = iota
	MethodHead
	MethodPut
	MethodDelete
	MethodOptions
	MethodPropfind
	MethodMkcol
	MethodCopy
	MethodMove
)

var methodNames = [...]string{
	MethodGet:      "GET",
	MethodHead:     "HEAD",
	MethodPut:      "PUT",
	MethodDelete:   "DELETE",
	MethodOptions:  "OPTIONS",
	MethodPropfind: "PROPFIND",
	MethodMkcol:    "MKCOL",
	MethodCopy:     "COPY",
	MethodMove:     "MOVE",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseMethod maps an HTTP method token to a Method. Tokens are case-sensitive
// per RFC 9110.
func ParseMethod(s string) (Method, bool) {
	for m, name := range methodNames {
		if name == s {
			return Method(m), true
		}
	}
	return 0, false
}

// Methods lists every routed verb in declaration order
func Methods() []string {
	out := make([]string, len(methodNames))
	copy(out, methodNames[:])
	return out
}

// allowHeader is the Allow value advertised by OPTIONS
var allowHeader = strings.Join(Methods(), ", ")
