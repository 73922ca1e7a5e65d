package util

import (
	"github.com/gin-gonic/gin"

	"github.com/caredesk/caredesk/dao/model"
)

const (
	StaffIDKey   = "x-staff-id"
	StaffNameKey = "x-staff-name"
	RoleKey      = "x-role"
	OfficeIDKey  = "x-office-id"
)

func SetJWTContext(c *gin.Context, msg JWTMessage) {
	c.Set(StaffIDKey, msg.StaffID)
	c.Set(StaffNameKey, msg.Name)
	c.Set(RoleKey, msg.Role)
	c.Set(OfficeIDKey, msg.OfficeID)
}

func GetToken(ctx *gin.Context) JWTMessage {
	var msg JWTMessage
	msg.StaffID = ctx.GetUint(StaffIDKey)
	msg.Name = ctx.GetString(StaffNameKey)
	msg.OfficeID = ctx.GetUint(OfficeIDKey)

	if role, ok := ctx.Get(RoleKey); ok {
		msg.Role, _ = role.(model.Role)
	}
	return msg
}
