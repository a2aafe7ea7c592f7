package composer

import "github.com/rs/zerolog"

var composerLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	composerLogger = l
}
