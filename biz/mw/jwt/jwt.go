package jwt

import (
	"context"
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/hertz-contrib/jwt"
)

var IdentityKey = "sub"

type Caller struct {
	ID string
}

// GetJwtMiddleware validates bearer tokens issued by the dashboard backend.
// The collector never issues tokens itself; it only guards its mutating
// trigger endpoints.
func GetJwtMiddleware(secret string) *jwt.HertzJWTMiddleware {
	JwtMiddleware, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "harbormon collector trigger auth",
		Key:         []byte(secret),
		Timeout:     time.Hour,
		MaxRefresh:  time.Hour,
		IdentityKey: IdentityKey,
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			sub, _ := claims[IdentityKey].(string)
			return &Caller{ID: sub}
		},
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			if v, ok := data.(*Caller); ok && v.ID != "" {
				c.Set("callerID", v.ID)
				return true
			}
			return false
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]interface{}{
				"code":    code,
				"message": message,
			})
		},
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
		KeyFunc: func(t *gojwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidSigningAlgorithm
			}
			return []byte(secret), nil
		},
	})
	if err != nil {
		log.Fatal("JWT Error:" + err.Error())
	}
	return JwtMiddleware
}
