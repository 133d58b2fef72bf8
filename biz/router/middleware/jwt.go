package middleware

import (
	"github.com/cloudwego/hertz/pkg/app"

	"harbormon/collector-service/biz/mw/jwt"
)

func Protected(secret string) []app.HandlerFunc {
	mwJwt := jwt.GetJwtMiddleware(secret)
	mwJwt.MiddlewareInit()
	return []app.HandlerFunc{
		mwJwt.MiddlewareFunc(),
	}
}
