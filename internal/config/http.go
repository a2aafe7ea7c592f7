package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeCSS  = "text/css; charset=utf-8"
	CTypeHTML = "text/html; charset=utf-8"
	CTypeJSON = "application/json"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
	HTTPErrNotFound         = "Not found"
	HTTPErrUnauthorized     = "Unauthorized"
	HTTPErrBadRequest       = "Invalid request body"
	HTTPErrNotPublishable   = "Content is not enough."
)

const (
	CookieAuthToken   = "auth_token"
	CookieSyntaxTheme = "syntax-theme"
)
