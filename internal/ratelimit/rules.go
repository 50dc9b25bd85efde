package ratelimit

import (
	"strings"
	"time"
)

// Scopes a rule can be keyed on.
const (
	ScopeIP   = "ip"
	ScopeUser = "user"
)

// Rule is a limit applied to one API method for one kind of identity.
type Rule struct {
	Api    string
	Method string
	Scope  string
	Limit  int
	Window time.Duration
}

// Key returns the bucket key for identity under this rule.
func (r Rule) Key(identity string) string {
	return BucketKey(r.Api, r.Scope, r.Method, identity)
}

// BucketKey encodes api, scope, method and identity as api:scope:method:identity.
// Method is upper-cased so GET and get share a bucket.
func BucketKey(api, scope, method, identity string) string {
	return strings.Join([]string{
		strings.TrimSpace(api),
		strings.TrimSpace(scope),
		strings.ToUpper(strings.TrimSpace(method)),
		strings.TrimSpace(identity),
	}, ":")
}
