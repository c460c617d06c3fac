package service

import (
	"github.com/medtrack/medtrack-server/internal/config"
	"github.com/medtrack/medtrack-server/internal/ratelimit"
	"github.com/medtrack/medtrack-server/internal/repository"
)

type Services struct {
	Auth *AuthService
}

func NewServices(repos *repository.Repositories, limiter *ratelimit.Limiter, cfg *config.Config) *Services {
	return &Services{
		Auth: NewAuthService(repos, limiter, cfg),
	}
}
