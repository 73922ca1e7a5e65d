package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/dao/query"
	"github.com/caredesk/caredesk/internal/resputil"
	"github.com/caredesk/caredesk/internal/util"
)

func AuthProtected() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		t := strings.Split(authHeader, " ")
		if len(t) < 2 || t[0] != "Bearer" {
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid token", resputil.TokenInvalid)
			c.Abort()
			return
		}

		authToken := t[1]
		token, err := util.GetTokenMgr().CheckToken(authToken)
		if err != nil {
			resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
			c.Abort()
			return
		}

		// Mutating requests re-check the role against the database so a
		// stale token cannot outlive a role change or withdrawal.
		if c.Request.Method != http.MethodGet {
			var staff model.Staff
			if err := query.GetDB().First(&staff, token.StaffID).Error; err != nil {
				resputil.HTTPError(c, http.StatusUnauthorized, "Staff not found", resputil.TokenExpired)
				c.Abort()
				return
			}
			if staff.Role != token.Role {
				resputil.HTTPError(c, http.StatusUnauthorized, "Role token not match", resputil.TokenExpired)
				c.Abort()
				return
			}
		}

		util.SetJWTContext(c, token)
		c.Next()
	}
}

func AuthAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.GetToken(c)
		if token.Role != model.RoleAdmin {
			resputil.HTTPError(c, http.StatusUnauthorized, "Not Admin", resputil.NotAllowed)
			c.Abort()
			return
		}
		c.Next()
	}
}
