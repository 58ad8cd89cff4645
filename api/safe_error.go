package api

import (
	"finera/config"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SafeErrorMessage hides internal error details from clients in release mode
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// internalError logs err with the request id and answers 500
func internalError(c *gin.Context, err error, fallback string) {
	log.Error().Err(err).
		Str("request_id", requestid.Get(c)).
		Str("path", c.FullPath()).
		Msg(fallback)
	InternalError(c, SafeErrorMessage(err, fallback))
}
