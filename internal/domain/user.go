package domain

type UserRole string

const (
	UserRoleAdmin   UserRole = "Administrador"
	UserRoleTeacher UserRole = "Docente"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleTeacher:
		return true
	}
	return false
}

// DNILength is the fixed length of a national identity document number.
const DNILength = 8

type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	DNI          string   `json:"dni"`
	Role         UserRole `json:"role"`
	PasswordHash string   `json:"-"`
	CreatedOn    string   `json:"created_on"`
	UpdatedOn    string   `json:"updated_on"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// ValidDNI reports whether dni is exactly DNILength ASCII digits.
func ValidDNI(dni string) bool {
	if len(dni) != DNILength {
		return false
	}
	for i := 0; i < len(dni); i++ {
		if dni[i] < '0' || dni[i] > '9' {
			return false
		}
	}
	return true
}
