package auth

import (
	"fmt"
	"strconv"
	"strings"
)

// StaticTokens is a TokenValidator backed by a fixed token table, parsed from
// the KLUSQUEST_API_TOKENS environment variable. It exists so the server
// binary runs without the real identity layer; deployments embed this engine
// behind their own validator.
type StaticTokens struct {
	tokens map[string]Caller
}

// ParseStaticTokens parses "token:householdID:role" triples separated by
// commas, e.g. "abc:1:parent,def:1:kid".
func ParseStaticTokens(spec string) (*StaticTokens, error) {
	st := &StaticTokens{tokens: make(map[string]Caller)}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return st, nil
	}
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed token entry %q", part)
		}
		householdID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed household id in %q", part)
		}
		role := fields[2]
		if role != RoleParent && role != RoleKid {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		st.tokens[fields[0]] = Caller{HouseholdID: householdID, Role: role}
	}
	return st, nil
}

// Validate implements middleware.TokenValidator.
func (st *StaticTokens) Validate(token string) (Caller, bool) {
	c, ok := st.tokens[token]
	return c, ok
}
