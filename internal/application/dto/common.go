package dto

// Límites de paginación de los listados.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest paginación pedida por query string.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Normalize lleva Limit a [1, MaxPageLimit] (DefaultPageLimit si no es positivo) y Offset a >= 0.
func (p *PageRequest) Normalize() {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse cuerpo de error HTTP. Code es estable (VALIDATION, NOT_FOUND, LOCK_TIMEOUT...).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
