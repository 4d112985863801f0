package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/helpers"
)

// PaymentSignatureMiddleware rejects payment callbacks that are not signed
// with secret. An empty secret disables the check.
func PaymentSignatureMiddleware(secret string) gin.HandlerFunc {
	signer := helpers.NewPaymentSigner(secret)

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		headers := map[string]string{
			"Request-Id":        c.GetHeader("Request-Id"),
			"Request-Timestamp": c.GetHeader("Request-Timestamp"),
			"Digest":            c.GetHeader("Digest"),
			"Signature":         c.GetHeader("Signature"),
		}
		if err := signer.Verify(headers, c.Request.URL.Path, body, time.Now()); err != nil {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid payment signature.")
			return
		}

		c.Next()
	}
}
