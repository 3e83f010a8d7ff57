package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// codeBytes 4 случайных байта дают 8 hex символов
const codeBytes = 4

// maxCodeAttempts сколько раз генерировать код при коллизии
const maxCodeAttempts = 5

// CodeGenerator возвращает новый код реферальной ссылки
type CodeGenerator func() (string, error)

// GenerateCode генерирует код из 8 hex символов в верхнем регистре
func GenerateCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// GenerateClientID генерирует публичный идентификатор организатора для URL вебхука
func GenerateClientID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "org_" + hex.EncodeToString(b), nil
}

// shortLink ссылка вида <base>/r/<code>
func shortLink(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/r/" + code
}

// validateAbsoluteURL проверяет, что строка является абсолютным http(s) URL с хостом
func validateAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// validEmail принимает только голый адрес: без отображаемого имени и переводов строк
func validEmail(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, "\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(raw)
	return err == nil && addr.Address == raw
}
