package validate

import "github.com/rs/zerolog"

var validateLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	validateLogger = l
}
