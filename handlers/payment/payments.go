package payment

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	paymentsvc "github.com/shiksha-labs/shiksha-api/services/payment"
	"github.com/shiksha-labs/shiksha-api/services/subscription"
	"github.com/shiksha-labs/shiksha-api/utils/middleware"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// PaymentHandler handles order creation, verification and history
type PaymentHandler struct {
	db        *gorm.DB
	service   *paymentsvc.Service
	subs      *subscription.Service
	validator *validation.Validator
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(db *gorm.DB, service *paymentsvc.Service, subs *subscription.Service) *PaymentHandler {
	return &PaymentHandler{
		db:        db,
		service:   service,
		subs:      subs,
		validator: validation.NewValidator(),
	}
}

// CreateOrderRequest starts a purchase for a plan
type CreateOrderRequest struct {
	PlanID uint `json:"plan_id" validate:"required"`
}

// CreateOrder validates the purchase and registers a gateway order.
// Conflicting purchases are rejected before the gateway is reached.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	pmt, err := h.service.CreateOrder(c.Context(), user, req.PlanID)
	if err != nil {
		var conflict *subscription.ConflictError
		switch {
		case errors.As(err, &conflict):
			return response.BadRequest(c, conflict.Message)
		case errors.Is(err, paymentsvc.ErrPlanNotFound):
			return response.NotFound(c, "Subscription plan not found")
		default:
			return response.InternalServerError(c, "Failed to create order: "+err.Error())
		}
	}

	return response.Created(c, fiber.Map{
		"order_id": pmt.OrderID,
		"amount":   pmt.Amount,
		"currency": pmt.Currency,
		"receipt":  pmt.Receipt,
		"status":   pmt.Status,
	})
}

// VerifyPaymentRequest settles a pending order
type VerifyPaymentRequest struct {
	OrderID     string `json:"order_id" validate:"required"`
	ReferenceID string `json:"reference_id,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// VerifyPayment confirms payment with the gateway and activates the
// subscription window. Calling it again for a completed payment returns
// 400 without side effects.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	pmt, err := h.service.VerifyPayment(c.Context(), user, req.OrderID, req.ReferenceID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrAlreadyVerified):
			return response.BadRequest(c, "Payment already verified")
		case errors.Is(err, paymentsvc.ErrPaymentNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, paymentsvc.ErrOrderNotPaid):
			return response.BadRequest(c, "Payment was not completed at the gateway")
		case errors.Is(err, paymentsvc.ErrSignatureMismatch):
			return response.BadRequest(c, "Payment signature verification failed")
		case errors.Is(err, paymentsvc.ErrNotPayable):
			return response.BadRequest(c, "Payment is not in a verifiable state")
		default:
			return response.InternalServerError(c, "Failed to verify payment: "+err.Error())
		}
	}

	return response.SuccessWithMessage(c, "Payment verified and subscription activated", pmt)
}

// MyPayments lists the authenticated user's payment history.
func (h *PaymentHandler) MyPayments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var payments []model.Payment
	err := h.db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load payments")
	}

	return response.Success(c, payments)
}

// MySubscriptions lists the authenticated user's unexpired subscriptions.
func (h *PaymentHandler) MySubscriptions(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	subs, err := h.subs.ActiveSubscriptions(userID, time.Now())
	if err != nil {
		return response.InternalServerError(c, "Failed to load subscriptions")
	}

	return response.Success(c, subs)
}
