package dtos

// ConnectRequest is the credential payload of the legacy
// connect-and-describe flow (/db/connect).
type ConnectRequest struct {
	Type     string `json:"type" binding:"required"`
	Host     string `json:"host" binding:"required"`
	Port     string `json:"port"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	Database string `json:"database" binding:"required"`
}
