package draft

import "github.com/rs/zerolog"

var draftLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}
