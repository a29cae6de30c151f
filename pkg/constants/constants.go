package constants

// Token is the gin context key the auth middleware stores the raw
// bearer token under.
const Token = "token"
