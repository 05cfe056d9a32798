package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	apierrors "github.com/markettask/markettask-api/internal/errors"
	"github.com/markettask/markettask-api/internal/services"
)

// respondServiceError maps service sentinel errors onto the API error
// taxonomy. Anything unmapped is an internal error; details stay in the logs.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrReviewNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrNotTaskPoster),
		errors.Is(err, services.ErrNotOfferOwner),
		errors.Is(err, services.ErrNotTaskParty),
		errors.Is(err, services.ErrNotReviewAuthor),
		errors.Is(err, services.ErrNotSettlementParty),
		errors.Is(err, services.ErrSelfReview),
		errors.Is(err, services.ErrOwnTaskOffer),
		errors.Is(err, services.ErrTransitionForbidden):
		apierrors.Forbidden(c, err.Error())

	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrTaskNotCompleted):
		apierrors.InvalidStateTransition(c, err.Error())

	case errors.Is(err, services.ErrTaskNotAccepting),
		errors.Is(err, services.ErrOfferNotAcceptable),
		errors.Is(err, services.ErrAcceptanceConflict),
		errors.Is(err, services.ErrTransitionConflict),
		errors.Is(err, services.ErrReviewExists),
		errors.Is(err, services.ErrNoAcceptedOffer),
		errors.Is(err, services.ErrNoCompletedPayment):
		apierrors.Conflict(c, err.Error())

	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrBudgetInvalid),
		errors.Is(err, services.ErrCurrencyRequired),
		errors.Is(err, services.ErrOfferAmountInvalid),
		errors.Is(err, services.ErrRatingOutOfRange),
		errors.Is(err, services.ErrOfferTaskMismatch),
		errors.Is(err, services.ErrAssignViaAcceptance),
		errors.Is(err, services.ErrCompletionPath),
		errors.Is(err, services.ErrCancellationPath),
		errors.Is(err, services.ErrTaskNeverAssigned):
		apierrors.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrPaymentIntentFailed),
		errors.Is(err, services.ErrCaptureFailed),
		errors.Is(err, services.ErrReceiptsNotAvailable):
		apierrors.DependencyFailure(c, err.Error())

	default:
		apierrors.InternalError(c, "")
	}
}
