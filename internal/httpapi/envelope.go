package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// publicKey exposes the RSA-OAEP public key clients must encrypt [E]
// endpoint bodies against (spec.md §6's envelope transport).
func (s Server) publicKey(c echo.Context) error {
	pem, err := s.Envelope.PublicKeyPEM()
	if err != nil {
		logInternal(err)
		return err
	}
	return c.Blob(http.StatusOK, "application/x-pem-file", pem)
}
