// errors стандартизирует ответы об ошибках REST-слоя conference-service.
// На вход он принимает ошибку сервисного слоя (sentinel из internal/service
// или ошибку контекста), а на выход даёт:
//   - корректный HTTP-статус;
//   - короткий машиночитаемый code;
//   - безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-conference-central/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal,
//     чтобы не послать "200 OK" с телом ошибки;
//   - sentinel из internal/service - статус по таблице baseFromService;
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504;
//   - прочее -> 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	httpStatus, code, msg := baseFromService(err)
	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	write(w, r, status, resp)
}

// WriteErrorMessage — как WriteError, но с заданным message.
// Используется для отказов регистрации: причина и так безопасна для клиента.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, resp := ToHTTP(err)
	if msg != "" {
		resp.Error.Message = msg
	}
	write(w, r, status, resp)
}

func write(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// baseFromService — маппинг ошибок сервиса -> HTTP/FE-код/сообщение:
//   - ErrAuthRequired -> 401
//   - ErrConferenceNotFound, ErrProfileNotFound -> 404
//   - ErrAlreadyRegistered, ErrNoSeatsAvailable -> 409
//   - ErrNotRegistered, ErrRegistrationFailed -> 403
//   - ErrBadFilterCombination, ErrInvalidArgument -> 400
//   - context.Canceled -> 499
//   - context.DeadlineExceeded -> 504
//   - прочее (в т.ч. ErrInternal) -> 500/internal
func baseFromService(err error) (int, string, string) {
	switch {
	case stderrors.Is(err, service.ErrAuthRequired):
		return http.StatusUnauthorized, "unauthenticated", "authorization required"
	case stderrors.Is(err, service.ErrConferenceNotFound):
		return http.StatusNotFound, "conference_not_found", "conference not found"
	case stderrors.Is(err, service.ErrProfileNotFound):
		return http.StatusNotFound, "profile_not_found", "profile not found"
	case stderrors.Is(err, service.ErrAlreadyRegistered):
		return http.StatusConflict, "already_registered", "already registered"
	case stderrors.Is(err, service.ErrNoSeatsAvailable):
		return http.StatusConflict, "no_seats_available", "no seats available"
	case stderrors.Is(err, service.ErrNotRegistered):
		return http.StatusForbidden, "not_registered", "not registered"
	case stderrors.Is(err, service.ErrRegistrationFailed):
		return http.StatusForbidden, "registration_failed", "registration failed"
	case stderrors.Is(err, service.ErrBadFilterCombination):
		return http.StatusBadRequest, "bad_filter_combination", "inequality filters must use one field and match the sort order"
	case stderrors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
