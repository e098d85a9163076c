package authapi

import "ebauth/cmd/identity"

// envelope is the body of every successful user API response.
type envelope struct {
	Identity identity.Identity `json:"identity"`
	API      string            `json:"api"`
	Action   string            `json:"action"`
	Data     any               `json:"data"`
}

// errorData is the data payload for administration input errors. Those are
// answered with 200 and the message, not with an error status.
type errorData struct {
	Error string `json:"error"`
}

const (
	apiUser = "user"

	actionToken  = "token"
	actionAdd    = "add"
	actionDelete = "delete"
)

// Form fields.
const (
	fieldToken      = "token"
	fieldUser       = "user"
	fieldPassword   = "password"
	fieldPrivileges = "privileges"
	// Older clients spell it this way.
	fieldPrivilegesLegacy = "priviledges"
)
