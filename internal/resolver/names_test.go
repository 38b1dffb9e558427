package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestDescriptionPrefersItalian(t *testing.T) {
	descs := map[string]string{
		"DE": "Deutsch",
		"EN": "English",
		"IT": "Italiano",
	}
	got := BestDescription(descs, []string{"DE", "EN", "IT"})
	assert.Equal(t, "Italiano", got)
}

func TestBestDescriptionFallsBackToEnglish(t *testing.T) {
	descs := map[string]string{
		"FR": "Français",
		"EN": "English",
	}
	got := BestDescription(descs, []string{"FR", "EN"})
	assert.Equal(t, "English", got)
}

func TestBestDescriptionFirstInsertedWins(t *testing.T) {
	descs := map[string]string{
		"FR": "Français",
		"ES": "Español",
	}
	got := BestDescription(descs, []string{"FR", "ES"})
	assert.Equal(t, "Français", got)

	got = BestDescription(descs, []string{"ES", "FR"})
	assert.Equal(t, "Español", got)
}

func TestBestDescriptionEmptyMapUsesFallback(t *testing.T) {
	got := BestDescription(map[string]string{}, nil)
	assert.Equal(t, fallbackDescription, got)
}

func TestResolveName(t *testing.T) {
	assert.Equal(t, "Dal DB", ResolveName("MVC_STD", "  Dal DB "))
	assert.Equal(t, "Manuale Ventilatore Standard", ResolveName("MVC_STD", ""))
	assert.Equal(t, fallbackName, ResolveName("UNKNOWN_CODE", ""))
	assert.Equal(t, fallbackName, ResolveName("", ""))
}

func TestDefaultDescription(t *testing.T) {
	assert.Contains(t, DefaultDescription("ROLLOUT"), "rollout")
	assert.Equal(t, "Documentazione tecnica per CUSTOM", DefaultDescription("CUSTOM"))
	assert.Equal(t, fallbackDescription, DefaultDescription(""))
}
