package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrOrganizerNotFound  = errors.New("organizer not found")
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrDuplicateMapping кампания с таким external_event_id у организатора уже есть
	ErrDuplicateMapping = errors.New("duplicate external event mapping")
	ErrDuplicateEmail   = errors.New("contact with this email already exists in campaign")
	ErrCodeExists       = errors.New("unique code already exists")
	ErrDuplicateOrder   = errors.New("conversion for this order already exists")
	ErrDuplicateBuyer   = errors.New("conversion for this buyer already exists")
	ErrDuplicateCredit  = errors.New("credit for this conversion already exists")
	ErrDuplicateClient  = errors.New("client id already taken")

	// ErrStatusConflict условное обновление не нашло строку в ожидаемом статусе
	ErrStatusConflict = errors.New("record is not in the expected status")
)

// Имена ограничений уникальности из миграций
const (
	constraintCampaignExternalEvent = "campaigns_organizer_external_event_key"
	constraintContactEmail          = "contacts_campaign_email_key"
	constraintContactCode           = "contacts_unique_code_key"
	constraintConversionOrder       = "conversions_campaign_order_key"
	constraintConversionBuyer       = "conversions_campaign_buyer_key"
	constraintCreditConversion      = "credits_conversion_id_key"
	constraintOrganizerClientID     = "organizer_profiles_client_id_key"
)

const pgUniqueViolation = "23505"

// uniqueViolation возвращает имя нарушенного ограничения уникальности
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsDuplicate true для любой ошибки уникальности из этого пакета
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateMapping) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrCodeExists) ||
		errors.Is(err, ErrDuplicateOrder) ||
		errors.Is(err, ErrDuplicateBuyer) ||
		errors.Is(err, ErrDuplicateCredit) ||
		errors.Is(err, ErrDuplicateClient)
}
