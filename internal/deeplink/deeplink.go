// Package deeplink строит ссылки для связи сторон сделки вне приложения.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BearBump/LoadBoard/internal/apperr"
)

// normalizePhone приводит номер к цифрам E.164 без плюса — формат,
// который ожидает wa.me. Локальные саудовские номера 05xxxxxxxx
// переводятся в 9665xxxxxxxx.
func normalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "05") && len(digits) == 10 {
		digits = "966" + digits[1:]
	}
	if len(digits) < 8 {
		return "", apperr.Validationf("phone number is too short")
	}
	return digits, nil
}

// WhatsApp возвращает wa.me-ссылку с предзаполненным сообщением о грузе.
func WhatsApp(phone, origin, destination string) (string, error) {
	digits, err := normalizePhone(phone)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("Hello, I am contacting you about the load %s → %s.", origin, destination)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(text)), nil
}

// Tel возвращает tel:-ссылку для прямого звонка.
func Tel(phone string) (string, error) {
	digits, err := normalizePhone(phone)
	if err != nil {
		return "", err
	}
	return "tel:+" + digits, nil
}
