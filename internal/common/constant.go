package common

// Cookie names shared by the HTTP layer and the feedctl client.
const (
	AccessTokenCookieName  = "jwt"
	DeviceTokenCookieName  = "deviceToken"
	RefreshTokenCookieName = "refreshToken"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
