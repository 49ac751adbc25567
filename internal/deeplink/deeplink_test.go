package deeplink

import (
	"testing"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestWhatsApp(t *testing.T) {
	link, err := WhatsApp("+966 50 000 0001", "Riyadh", "Jeddah")
	require.NoError(t, err)
	require.Contains(t, link, "https://wa.me/966500000001?text=")
	require.Contains(t, link, "Riyadh")
	require.NotContains(t, link, " ") // текст закодирован

	// Локальный формат 05x приводится к международному.
	link, err = WhatsApp("0500000001", "A", "B")
	require.NoError(t, err)
	require.Contains(t, link, "wa.me/966500000001")
}

func TestTel(t *testing.T) {
	link, err := Tel("+966-50-000-0001")
	require.NoError(t, err)
	require.Equal(t, "tel:+966500000001", link)
}

func TestRejectsGarbage(t *testing.T) {
	_, err := WhatsApp("abc", "A", "B")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = Tel("123")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
