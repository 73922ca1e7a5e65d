package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40103
	EmailTaken         ErrorCode = 40104

	// Staff is not allowed to access the resource
	NotAllowed ErrorCode = 40301

	// Approval workflow
	RequestNotFound         ErrorCode = 40401
	RequestAlreadyProcessed ErrorCode = 40901
	DuplicatePendingRequest ErrorCode = 40902
	PayloadInvalid          ErrorCode = 42201

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
