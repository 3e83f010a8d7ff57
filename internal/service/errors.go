package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Ошибки валидации (400)
var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidTicketURL = errors.New("ticket_url must be an absolute http(s) URL")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrMissingRefCode   = errors.New("ref_code is required")
	ErrInvalidRefCode   = errors.New("invalid ref code")
	ErrInvalidCampaign  = errors.New("invalid campaign settings")
	ErrInvalidProfile   = errors.New("invalid profile settings")
)

// Ошибки поиска (404)
var (
	ErrClientNotFound   = errors.New("invalid client id")
	ErrContactNotFound  = errors.New("link not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrProfileNotFound  = errors.New("profile not found")
)

// Ошибки состояния и конфликты
var (
	ErrDuplicateMapping  = errors.New("campaign for this external event already exists")
	ErrCampaignNotActive = errors.New("campaign not active")
	ErrInvalidTransition = errors.New("invalid campaign status transition")
	ErrCampaignArchived  = errors.New("this promotion is no longer available")
)

// Ошибки хранилища (500), запрос можно безопасно повторить
var (
	ErrProcessingFailed     = errors.New("failed to process request")
	ErrCampaignCreateFailed = errors.New("failed to auto-create campaign")
)

// RateLimitError запрос отклонён лимитом вебхуков кампании
type RateLimitError struct {
	Limit   int
	Current int64
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d requests per hour exceeded", e.Limit)
}

// Remaining количество оставшихся запросов в текущем окне
func (e *RateLimitError) Remaining() int64 {
	if r := int64(e.Limit) - e.Current; r > 0 {
		return r
	}
	return 0
}

// processingError оборачивает ошибку хранилища в ErrProcessingFailed
func processingError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProcessingFailed, op, err)
}

// Classify сопоставляет ошибку сервиса HTTP статусу и машинному коду
func Classify(err error) (int, string) {
	var rateErr *RateLimitError

	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, "rate_limit_exceeded"

	case errors.Is(err, ErrMissingField):
		return http.StatusBadRequest, "missing_field"
	case errors.Is(err, ErrInvalidTicketURL):
		return http.StatusBadRequest, "invalid_ticket_url"
	case errors.Is(err, ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_email"
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_payload"
	case errors.Is(err, ErrMissingRefCode):
		return http.StatusBadRequest, "missing_ref_code"
	case errors.Is(err, ErrInvalidRefCode):
		return http.StatusBadRequest, "invalid_ref_code"
	case errors.Is(err, ErrInvalidCampaign):
		return http.StatusBadRequest, "invalid_campaign"
	case errors.Is(err, ErrInvalidProfile):
		return http.StatusBadRequest, "invalid_profile"

	case errors.Is(err, ErrClientNotFound):
		return http.StatusNotFound, "client_not_found"
	case errors.Is(err, ErrContactNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrCampaignNotFound):
		return http.StatusNotFound, "campaign_not_found"
	case errors.Is(err, ErrProfileNotFound):
		return http.StatusNotFound, "profile_not_found"

	case errors.Is(err, ErrDuplicateMapping):
		return http.StatusConflict, "duplicate_mapping"
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, ErrCampaignNotActive):
		return http.StatusForbidden, "campaign_not_active"
	case errors.Is(err, ErrCampaignArchived):
		return http.StatusGone, "campaign_unavailable"

	case errors.Is(err, ErrCampaignCreateFailed):
		return http.StatusInternalServerError, "campaign_create_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
