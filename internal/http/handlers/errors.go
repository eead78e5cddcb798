package handlers

import (
	"errors"
	"net/http"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/ingestion"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/intake"
	"github.com/yungbote/lectureplanner-backend/internal/platform/apierr"
	"github.com/yungbote/lectureplanner-backend/internal/services"
)

var (
	errProviderUnreachable = errors.New("cannot reach the course generation service, please try again shortly")
	errNotConfigured       = errors.New("course generation is not configured on this server")
	errUnparseable         = errors.New("the generated outline could not be read, try describing the course differently")
	errUpstream            = errors.New("the course generation service returned an error, please try again")
	errTimeout             = errors.New("course generation took too long")
)

// toAPIError maps service and pipeline errors onto HTTP statuses. Messages
// for provider failures are rewritten so upstream bodies never reach clients.
func toAPIError(err error) *apierr.Error {
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &mbe), errors.Is(err, intake.ErrTooLarge):
		return apierr.New(http.StatusRequestEntityTooLarge, "source_too_large", err)
	case errors.Is(err, services.ErrCourseNotFound):
		return apierr.NotFound("course_not_found", err)
	case errors.Is(err, domain.ErrTopicNotFound):
		return apierr.NotFound("topic_not_found", err)
	case errors.Is(err, domain.ErrParentNotFound):
		return apierr.BadRequest("parent_not_found", err)
	case errors.Is(err, domain.ErrDuplicateTopic):
		return apierr.New(http.StatusConflict, "duplicate_topic", err)
	case errors.Is(err, domain.ErrInvalidTopic):
		return apierr.BadRequest("invalid_topic", err)
	}

	switch ingestion.Kind(err) {
	case ingestion.KindInput:
		return apierr.BadRequest("invalid_input", err)
	case ingestion.KindConfiguration:
		return apierr.New(http.StatusInternalServerError, "not_configured", errNotConfigured)
	case ingestion.KindConnectivity:
		return apierr.New(http.StatusServiceUnavailable, "provider_unreachable", errProviderUnreachable)
	case ingestion.KindUpstream:
		return apierr.New(http.StatusInternalServerError, "upstream_error", errUpstream)
	case ingestion.KindValidation:
		return apierr.New(http.StatusInternalServerError, "unparseable_reply", errUnparseable)
	case ingestion.KindTimeout:
		return apierr.New(http.StatusGatewayTimeout, "timeout", errTimeout)
	case ingestion.KindCanceled:
		return apierr.New(http.StatusRequestTimeout, "request_canceled", err)
	}
	return apierr.From(err)
}
