package surface

import "github.com/rs/zerolog"

var surfaceLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	surfaceLogger = l
}
