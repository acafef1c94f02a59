package discovery

import (
	"testing"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/config"
)

func TestRegistration(t *testing.T) {
	server := config.ServerConfig{
		Port:           "8085",
		ServiceName:    "quiz-service",
		ServiceAddress: "quiz",
		ServiceID:      "quiz-service-8085",
	}

	reg, err := registration(server)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reg.Port != 8085 {
		t.Errorf("Expected port 8085, got %d", reg.Port)
	}
	if reg.Check.HTTP != "http://quiz:8085/health" {
		t.Errorf("Expected health check URL http://quiz:8085/health, got %s", reg.Check.HTTP)
	}
}

func TestRegistrationRejectsBadPort(t *testing.T) {
	_, err := registration(config.ServerConfig{Port: "http"})
	if err == nil {
		t.Error("Expected error for non-numeric port")
	}
}
