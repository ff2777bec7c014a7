package response

import (
	"github.com/gofiber/fiber/v2"
)

// Envelope is the wire shape of every successful handler reply.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorEnvelope wraps a failure. Code mirrors the HTTP status so a client
// reading the body alone can still branch on it; TraceID ties the reply to
// the server logs.
type ErrorEnvelope struct {
	Status string    `json:"status"`
	Error  ErrorInfo `json:"error"`
}

type ErrorInfo struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	TraceID string      `json:"trace_id,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

func success(c *fiber.Ctx, httpStatus int, message string, data interface{}, meta interface{}) error {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return c.Status(httpStatus).JSON(Envelope{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Success sends a 200 OK reply.
func Success(c *fiber.Ctx, message string, data interface{}, meta interface{}) error {
	return success(c, fiber.StatusOK, message, data, meta)
}

// SuccessCreated sends a 201 Created reply.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, meta interface{}) error {
	return success(c, fiber.StatusCreated, message, data, meta)
}

// Error sends an error reply carrying the request's trace ID when the
// tracing middleware has set one.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	traceID, _ := c.Locals("trace_id").(string)
	return c.Status(statusCode).JSON(ErrorEnvelope{
		Status: statusError,
		Error: ErrorInfo{
			Message: message,
			Code:    statusCode,
			TraceID: traceID,
			Details: details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors so auth
// middleware stays consistent with handlers.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}
