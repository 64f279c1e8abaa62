package actor

import (
	"salesdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// FromGin builds the acting-user context from the authenticated request.
func FromGin(c *gin.Context) Context {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return Context{}
	}

	role := ""
	if roles := id.Roles(); len(roles) > 0 {
		role = roles[0]
	}

	return Context{
		UserID: id.UserID(),
		Name:   c.GetString(httpkit.ContextUserNameKey),
		Role:   role,
	}
}
