package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token of an Administrador required
)

// EndpointSecurityConfig maps "METHOD path-template" to the required level.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	"GET /healthz":            SecurityPublic,
	"POST /api/v1/auth/login": SecurityPublic,

	// Users
	"POST /api/v1/users":     SecurityAdmin,
	"GET /api/v1/users/{id}": SecurityAccess,

	// Resources
	"GET /api/v1/resources":                SecurityAccess,
	"GET /api/v1/resources/{id}/incidents": SecurityAccess,

	// Loans
	"POST /api/v1/loans":                                   SecurityAccess,
	"GET /api/v1/loans":                                    SecurityAccess,
	"GET /api/v1/loans/{id}":                               SecurityAccess,
	"POST /api/v1/loans/{id}/authorize":                    SecurityAdmin,
	"POST /api/v1/loans/{id}/reject":                       SecurityAdmin,
	"POST /api/v1/loans/{id}/return":                       SecurityAccess,
	"POST /api/v1/loans/{id}/reconcile":                    SecurityAdmin,
	"GET /api/v1/loans/{id}/resources/{resourceId}/report": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given endpoint
func GetSecurityLevel(endpoint string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[endpoint]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
