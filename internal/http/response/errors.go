package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lectureplanner-backend/internal/platform/apierr"
)

var errInternal = errors.New("internal server error")

// RespondAPIError writes err using the status and code carried by an
// *apierr.Error in its chain. Internal errors never leak their message.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if ae.Status >= http.StatusInternalServerError && ae.Code == "internal_error" {
		RespondError(c, ae.Status, ae.Code, errInternal)
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}
