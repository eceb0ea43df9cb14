// SPDX-License-Identifier: MIT

package api

import (
	aqlog "github.com/piairqual/piairqual/internal/log"
	"github.com/rs/zerolog"
)

// logger returns a logger configured with component metadata.
func logger(component string) *zerolog.Logger {
	l := aqlog.WithComponent(component)
	return &l
}
