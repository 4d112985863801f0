package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/state"
)

const stateKey = "state"

func StateMiddleware(st *state.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(stateKey, st)
		c.Next()
	}
}

func GetState(c *gin.Context) *state.State {
	st, exists := c.Get(stateKey)
	if !exists {
		return nil
	}
	return st.(*state.State)
}
