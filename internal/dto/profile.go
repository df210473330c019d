package dto

import (
	"STUDYHUB_BACK-END/internal/models"
)

// UpdateProfileRequest patches the caller's profile; omitted fields stay unchanged
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname" validate:"omitempty,min=1,max=50"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
}

// PublicProfileResponse is what other users see
type PublicProfileResponse struct {
	ID        string                   `json:"id"`
	Nickname  string                   `json:"nickname"`
	AvatarURL *string                  `json:"avatar_url"`
	Bio       *string                  `json:"bio"`
	Role      string                   `json:"role"`
	Creator   *CreatorSettingsResponse `json:"creator,omitempty"`
}

// NewPublicProfileResponse converts a profile and optional creator settings
func NewPublicProfileResponse(p *models.Profile, s *models.CreatorSettings) PublicProfileResponse {
	out := PublicProfileResponse{
		ID:        p.ID.String(),
		Nickname:  p.Nickname,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		Role:      p.Role,
	}
	if s != nil {
		settings := NewCreatorSettingsResponse(s)
		out.Creator = &settings
	}
	return out
}
