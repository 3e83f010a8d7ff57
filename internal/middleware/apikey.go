package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ключи контекста gin
const (
	ContextAPIKeyName  = "api_key_name"
	ContextOrganizerID = "organizer_id"
)

// OrganizerHeader заголовок с user_id организатора для dashboard API
const OrganizerHeader = "X-Organizer-ID"

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// ValidKeys карта валидных API ключей к их описаниям
	ValidKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
	// OpenWhenEmpty пропускает запросы, если ни один ключ не настроен
	OpenWhenEmpty bool
}

// DefaultAPIKeyConfig конфигурация по умолчанию
var DefaultAPIKeyConfig = APIKeyConfig{
	HeaderName: "X-API-Key",
}

// APIKey middleware для аутентификации по API ключу
type APIKey struct {
	config APIKeyConfig
}

func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = DefaultAPIKeyConfig.HeaderName
	}
	return &APIKey{config: config}
}

// extractKey ищет ключ в заголовке, затем в Authorization: Bearer
func (ak *APIKey) extractKey(c *gin.Context) string {
	if key := c.GetHeader(ak.config.HeaderName); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// lookup сравнивает ключ со всеми валидными за постоянное время
func (ak *APIKey) lookup(key string) (string, bool) {
	var name string
	found := false
	for validKey, keyName := range ak.config.ValidKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			name = keyName
			found = true
		}
	}
	return name, found
}

func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(ak.config.ValidKeys) == 0 && ak.config.OpenWhenEmpty {
			c.Next()
			return
		}

		key := ak.extractKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key is required. Pass it in the X-API-Key header or as Authorization: Bearer",
			})
			return
		}

		name, ok := ak.lookup(key)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key",
			})
			return
		}

		c.Set(ContextAPIKeyName, name)
		c.Next()
	}
}

// RequireAPIKey всегда требует валидный ключ
func RequireAPIKey(validKeys map[string]string) gin.HandlerFunc {
	return NewAPIKey(APIKeyConfig{ValidKeys: validKeys}).Middleware()
}

// APIKeyIfConfigured требует ключ, только если ключи заданы в конфигурации
func APIKeyIfConfigured(validKeys map[string]string) gin.HandlerFunc {
	return NewAPIKey(APIKeyConfig{ValidKeys: validKeys, OpenWhenEmpty: true}).Middleware()
}

// RequireOrganizer читает user_id организатора из X-Organizer-ID
func RequireOrganizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(OrganizerHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_organizer",
				"message": OrganizerHeader + " header is required",
			})
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_organizer",
				"message": OrganizerHeader + " must be a UUID",
			})
			return
		}

		c.Set(ContextOrganizerID, id)
		c.Next()
	}
}

// OrganizerIDFromContext user_id, установленный RequireOrganizer
func OrganizerIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextOrganizerID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
