package response

import "errors"

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

//Error Codes
type ErrCode string

var (
	FAILED_REQUEST                ErrCode = "REQUEST_FAILED"
	BAD_REQUEST                   ErrCode = "FAILED_TO_DECODE"
	NOT_FOUND                     ErrCode = "NOT_FOUND"
	LOCKED                        ErrCode = "LOCKED"
	CONFLICT                      ErrCode = "CONFLICT"
	UNAUTHORIZED                  ErrCode = "UNAUTHORIZED"
	SLOT_NOT_AVAILABLE            ErrCode = "SLOT_NOT_AVAILABLE"
	SLOT_FULLY_BOOKED             ErrCode = "SLOT_FULLY_BOOKED"
	SLOT_HAS_BOOKINGS             ErrCode = "SLOT_HAS_BOOKINGS"
	APPOINTMENT_ALREADY_EXISTS    ErrCode = "APPOINTMENT_ALREADY_EXISTS"
	APPOINTMENT_ALREADY_CANCELLED ErrCode = "APPOINTMENT_ALREADY_CANCELLED"
	CANNOT_RESCHEDULE             ErrCode = "CANNOT_RESCHEDULE"
)

var (
	ErrBadRequest           = errors.New("bad request")
	ErrNotFound             = errors.New("resource not found")
	ErrLocked               = errors.New("resource is locked")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("actor is not allowed to perform this operation")
	ErrInvalidTimeFormat    = errors.New("invalid time format, expected HH:MM")
	ErrInvalidRange         = errors.New("start time must be before end time")
	ErrSlotNotAvailable     = errors.New("slot is not available")
	ErrSlotFullyBooked      = errors.New("slot is fully booked")
	ErrSlotHasBookings      = errors.New("slot has active bookings")
	ErrAppointmentExists    = errors.New("active appointment already exists for this slot")
	ErrAppointmentCancelled = errors.New("appointment is already cancelled")
	ErrCannotReschedule     = errors.New("appointment can no longer be rescheduled")
	ErrTxConflict           = errors.New("transaction conflict")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}
