package publish

import "github.com/rs/zerolog"

var publishLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	publishLogger = l
}
