package jwttoken

import (
	"revalidation/internal/platform/middleware"
)

// JWTServiceAdapter narrows JWTService to the middleware's validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		SubjectID: claims.SubjectID,
		JTI:       claims.ID,
	}, nil
}
