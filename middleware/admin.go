package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/captcha/utils"
)

// ContextAdminSubjectKey stores the subject of a verified admin token.
const ContextAdminSubjectKey = "admin_subject"

// AdminRequired guards routes reserved for the embedding host, such as
// assigning answers. Requests need a Bearer admin JWT signed with secret;
// with an empty secret every request is refused.
func AdminRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if secret == "" {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin api disabled")
			return
		}

		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		claims, err := utils.ParseAdminToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}
		ctx.Set(ContextAdminSubjectKey, claims.Subject)
		ctx.Next()
	}
}
