package auth

import "github.com/rs/zerolog"

var authLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	authLogger = l
}
