package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smberp/backend/internal/domain/posting"
	"github.com/smberp/backend/internal/interfaces/http/dto"
)

// PostingDecisionKey holds the allowed decision for handlers that want it
const PostingDecisionKey = "posting_decision"

// GuardTarget names the record a request touches and how to load it
type GuardTarget[ID any] struct {
	ID     ID
	Loader posting.Loader[ID]
	Label  string
}

// GuardResolver extracts the guard target from a request. Errors abort with 400.
type GuardResolver[ID any] func(c *gin.Context) (GuardTarget[ID], error)

// ImmutabilityGuard refuses op when the target record is posted, missing or
// cannot be loaded. Posted records get the immutability payload:
//
//	{"success":false,"status_code":403,"error":"Cannot update posted Invoice",
//	 "details":{"record_type":"Invoice","operation":"update","reason":"..."}}
//
// Missing and unloadable records get the standard error envelope with
// ERR_NOT_FOUND (404) or ERR_INTERNAL (500).
func ImmutabilityGuard[ID any](op posting.Operation, resolve GuardResolver[ID]) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := resolve(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, err.Error(), GetRequestID(c)))
			return
		}

		decision, err := posting.Enforce(c.Request.Context(), target.ID, target.Loader, op, target.Label)
		if err == nil {
			c.Set(PostingDecisionKey, decision)
			c.Next()
			return
		}

		v, ok := posting.AsViolation(err)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
			return
		}
		AbortWithViolation(c, v, target.Label, op)
	}
}

// AbortWithViolation writes the response for a denied posting decision
func AbortWithViolation(c *gin.Context, v *posting.Violation, label string, op posting.Operation) {
	if v.StatusCode == http.StatusForbidden {
		c.AbortWithStatusJSON(v.StatusCode, posting.BuildImmutabilityError(label, op.String()))
		return
	}
	c.AbortWithStatusJSON(v.StatusCode,
		dto.NewErrorResponseWithRequestID(dto.ViolationErrorCode(v.StatusCode), v.Message, GetRequestID(c)))
}
