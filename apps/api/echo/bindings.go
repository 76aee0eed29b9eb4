package echoapi

import (
	"github.com/trezcool/eadtoolz/core/dashboard"
	"github.com/trezcool/eadtoolz/core/session"
)

type (
	LoginRequest struct {
		session.Credentials
		Next string `json:"next"`
	}

	// RedirectResponse tells the view layer where to navigate next.
	RedirectResponse struct {
		Redirect string         `json:"redirect"`
		Session  *session.State `json:"session,omitempty"`
	}

	LoadingResponse struct {
		Loading bool `json:"loading"`
	}

	LoginView struct {
		Next string `json:"next,omitempty"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// NavView lists the sections reachable by the current role.
	NavView struct {
		Role     session.Role `json:"role"`
		Home     string       `json:"home"`
		Sections []string     `json:"sections"`
	}

	AdminDashboard struct {
		NavView
		Counts dashboard.Counts `json:"counts"`
	}

	SectionView struct {
		NavView
		Section string `json:"section"`
	}

	DashboardView struct {
		NavView
		Principal session.Principal `json:"principal"`
	}

	HealthResponse struct {
		Status string `json:"status"`
		Build  string `json:"build,omitempty"`
	}
)
