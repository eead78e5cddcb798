// Package response writes the JSON bodies of the course API. Successful
// payloads go out as-is; failures are wrapped as {"error":{"message","code"}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError aborts the handler chain with an error envelope. A nil err
// still yields a non-empty message.
func RespondError(c *gin.Context, status int, code string, err error) {
	body := ErrorEnvelope{Error: APIError{Message: "request failed", Code: code}}
	if err != nil {
		body.Error.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondCreated is used when a handler added a topic or a course.
func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
