// Package businessflow contains the business logic for the application.
package businessflow

import (
	"strconv"
	"strings"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information attached to log lines of security relevant flows
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// LogFields flattens the metadata into logger key/value pairs; nil gives none.
func (cm *ClientMetadata) LogFields() []any {
	if cm == nil {
		return nil
	}
	return []any{"ip", cm.IPAddress, "user_agent", cm.UserAgent, "request_id", cm.RequestID}
}

// ToUserDTO converts an account to its public view
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		UID:           user.ID,
		DisplayName:   user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// ParseID accepts a positive decimal record id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewBusinessErrorf("INVALID_ID", "Invalid id %q", ErrInvalidID, raw)
	}
	return id, nil
}
